// Package api serves the circuit over HTTP: a REST surface for every mutation
// operation, GraphQL, a WebSocket event stream, health probes and Prometheus
// metrics.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-circuits/pkg/api/middleware"
	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/graphql"
	"github.com/dd0wney/cluso-circuits/pkg/health"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/metrics"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

// NewServer wires the API around a circuit. broker feeds /ws; registry and
// checker may be nil, which disables /metrics and the health routes.
func NewServer(c *circuit.Circuit, broker *pubsub.Broker, registry *metrics.Registry, checker *health.HealthChecker, logger logging.Logger, config Config) (*Server, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.GraphQLMaxDepth <= 0 {
		config.GraphQLMaxDepth = graphql.DefaultMaxDepth
	}
	if config.CORS == nil {
		config.CORS = middleware.DefaultCORSConfig()
	}

	schema, err := graphql.GenerateSchema(c)
	if err != nil {
		return nil, fmt.Errorf("generating GraphQL schema: %w", err)
	}

	s := &Server{
		circuit:        c,
		broker:         broker,
		metrics:        registry,
		healthChecker:  checker,
		graphqlHandler: graphql.NewGraphQLHandler(schema, config.GraphQLMaxDepth),
		logger:         logger.With(logging.Component("api")),
		config:         config,
		startTime:      time.Now(),
	}
	if config.RateLimit != nil {
		s.rateLimiter = middleware.NewRateLimiter(config.RateLimit, s.logger)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

// Close releases background resources.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := s.routes()

	routeLabel := func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}

	var recorder middleware.MetricsRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}

	return middleware.Chain(mux,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Metrics(recorder, routeLabel),
		middleware.RateLimit(s.rateLimiter, middleware.ClientIP(s.config.TrustedProxies), nil),
		middleware.CORS(s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodyBytes),
	)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	if s.healthChecker != nil {
		mux.Handle("GET /health", s.healthChecker.HTTPHandler())
		mux.Handle("GET /health/ready", s.healthChecker.ReadinessHandler())
		mux.Handle("GET /health/live", s.healthChecker.LivenessHandler())
	}
	if s.metrics != nil {
		promHandler := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
		mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
			s.metrics.UpdateSystemMetrics()
			promHandler.ServeHTTP(w, r)
		})
	}
	mux.HandleFunc("GET /version", s.handleVersion)

	// Components
	mux.HandleFunc("GET /components", s.handleListComponents)
	mux.HandleFunc("POST /components", s.handleAddComponent)
	mux.HandleFunc("GET /components/{id}", s.handleGetComponent)
	mux.HandleFunc("PATCH /components/{id}", s.handleConfigureComponent)
	mux.HandleFunc("DELETE /components/{id}", s.handleDeleteComponent)
	mux.HandleFunc("POST /components/{id}/rename", s.handleRenameComponent)
	mux.HandleFunc("POST /components/{id}/move", s.handleMoveComponent)
	mux.HandleFunc("POST /components/{id}/toggle", s.componentAction(s.circuit.ToggleSwitch))
	mux.HandleFunc("POST /components/{id}/light/toggle", s.componentAction(s.circuit.ToggleLight))
	mux.HandleFunc("POST /components/{id}/press", s.componentAction(s.circuit.PushButtonDown))
	mux.HandleFunc("POST /components/{id}/release", s.componentAction(s.circuit.PushButtonUp))
	mux.HandleFunc("POST /components/{id}/sensor", s.handleSetSensor)
	mux.HandleFunc("POST /components/{id}/timer/start", s.componentAction(s.circuit.StartTimer))
	mux.HandleFunc("POST /components/{id}/timer/stop", s.componentAction(s.circuit.StopTimer))

	// Connections
	mux.HandleFunc("GET /connections", s.handleListConnections)
	mux.HandleFunc("POST /connections", s.handleConnect)
	mux.HandleFunc("GET /connections/{id}", s.handleGetConnection)
	mux.HandleFunc("DELETE /connections/{id}", s.handleDisconnect)

	// Connection gesture
	mux.HandleFunc("GET /gesture", s.handleGetGesture)
	mux.HandleFunc("POST /gesture/begin", s.handleBeginGesture)
	mux.HandleFunc("POST /gesture/complete", s.handleCompleteGesture)
	mux.HandleFunc("POST /gesture/cancel", s.handleCancelGesture)

	// Whole circuit
	mux.HandleFunc("GET /circuit", s.handleSnapshot)
	mux.HandleFunc("POST /circuit/recompute", s.handleRecompute)
	mux.HandleFunc("GET /activity", s.handleActivity)
	mux.HandleFunc("GET /loops", s.handleLoops)
	mux.HandleFunc("POST /timers/advance", s.handleAdvanceTimers)

	mux.Handle("POST /graphql", s.graphqlHandler)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}
