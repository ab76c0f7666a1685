package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dd0wney/cluso-circuits/pkg/logging"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64       // token refill rate
	BurstSize         int           // bucket capacity
	CleanupInterval   time.Duration // how often idle clients are swept
	ClientExpiration  time.Duration // idle time after which a client is forgotten
	MaxClients        int           // cap on tracked clients
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        10000,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	config   *RateLimitConfig
	logger   logging.Logger
	clients  map[string]*clientLimiter
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop. Call Stop
// to end the loop.
func NewRateLimiter(config *RateLimitConfig, logger logging.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	rl := &RateLimiter{
		config:   config,
		logger:   logger,
		clients:  make(map[string]*clientLimiter),
		stopChan: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow reports whether a request from clientID may proceed. New clients are
// refused once MaxClients are tracked.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	cl, ok := rl.clients[clientID]
	if !ok {
		if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
			rl.mu.Unlock()
			rl.logger.Warn("rate limiter client cap reached", logging.String("client", clientID))
			return false
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)}
		rl.clients[clientID] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopChan:
			return
		}
	}
}

// cleanup forgets clients idle for longer than ClientExpiration.
func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for id, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.config.ClientExpiration {
			delete(rl.clients, id)
			removed++
		}
	}
	if removed > 0 {
		rl.logger.Debug("rate limiter cleanup", logging.Count(removed))
	}
	return removed
}

// Stop stops the rate limiter cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

// ActiveClients returns the number of tracked clients.
func (rl *RateLimiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit creates middleware that applies rate limiting per client.
// onLimited, when set, is called before the 429 response is written.
func RateLimit(limiter *RateLimiter, clientID func(*http.Request) string, onLimited func(w http.ResponseWriter, r *http.Request, clientID string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			id := clientID(r)
			if !limiter.Allow(id) {
				limiter.logger.Warn("rate limit exceeded",
					logging.String("client", id),
					logging.Path(r.URL.Path),
					logging.RequestID(GetRequestID(r)),
				)
				if onLimited != nil {
					onLimited(w, r, id)
				}
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', -1, 64))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate_limited","message":"Rate limit exceeded, retry after 1 second"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
