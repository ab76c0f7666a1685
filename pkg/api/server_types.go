package api

import (
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-circuits/pkg/api/middleware"
	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/graphql"
	"github.com/dd0wney/cluso-circuits/pkg/health"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/metrics"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

// Config holds the HTTP surface settings.
type Config struct {
	Version         string
	CORS            *middleware.CORSConfig
	RateLimit       *middleware.RateLimitConfig // nil disables rate limiting
	TrustedProxies  []*net.IPNet
	MaxBodyBytes    int64
	GraphQLMaxDepth int
}

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Server represents the HTTP API server
type Server struct {
	circuit        *circuit.Circuit
	broker         *pubsub.Broker
	metrics        *metrics.Registry
	healthChecker  *health.HealthChecker
	graphqlHandler *graphql.GraphQLHandler
	rateLimiter    *middleware.RateLimiter
	upgrader       websocket.Upgrader
	logger         logging.Logger
	config         Config
	startTime      time.Time
}
