// Package server runs the circuit HTTP API with graceful shutdown and
// SIGHUP-triggered configuration reload.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/logging"
)

// DefaultShutdownTimeout bounds how long in-flight requests may drain.
const DefaultShutdownTimeout = 15 * time.Second

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration

	ready     chan struct{}
	addr      net.Addr
	addrMu    sync.RWMutex
	readyOnce sync.Once

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	configReloadFn ConfigReloadFunc
	configMu       sync.RWMutex
}

// Option configures a GracefulServer.
type Option func(*GracefulServer)

// WithLogger sets the server's logger.
func WithLogger(logger logging.Logger) Option {
	return func(gs *GracefulServer) {
		gs.logger = logger
	}
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(gs *GracefulServer) {
		if d > 0 {
			gs.shutdownTimeout = d
		}
	}
}

// NewGracefulServer creates a new graceful HTTP server. Write timeouts are left
// unset because /ws connections are long-lived.
func NewGracefulServer(addr string, handler http.Handler, opts ...Option) *GracefulServer {
	gs := &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logging.DefaultLogger(),
		shutdownTimeout: DefaultShutdownTimeout,
		ready:           make(chan struct{}),
		shutdownCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(gs)
	}
	gs.logger = gs.logger.With(logging.Component("http"))
	return gs
}

// Run listens on the configured address and serves until ctx is cancelled,
// then drains connections. It returns nil after a clean shutdown.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}

	gs.addrMu.Lock()
	gs.addr = ln.Addr()
	gs.addrMu.Unlock()
	gs.readyOnce.Do(func() { close(gs.ready) })

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("starting HTTP server", logging.String("addr", ln.Addr().String()))
		errCh <- gs.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return gs.Shutdown(gs.shutdownTimeout)
	}
}

// Ready is closed once the listener is bound.
func (gs *GracefulServer) Ready() <-chan struct{} {
	return gs.ready
}

// Addr returns the bound address, or nil before Ready.
func (gs *GracefulServer) Addr() net.Addr {
	gs.addrMu.RLock()
	defer gs.addrMu.RUnlock()
	return gs.addr
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		op := logging.StartTimer(gs.logger, "server shutdown complete", logging.Duration("timeout", timeout))
		if err = gs.server.Shutdown(ctx); err != nil {
			op.EndError(err)
			return
		}
		op.End()
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.configMu.Lock()
	defer gs.configMu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.configMu.RLock()
	reloadFn := gs.configReloadFn
	gs.configMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Info("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("configuration reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("configuration reload complete")
	return nil
}

// WatchReload reloads configuration on every SIGHUP until ctx is cancelled.
func (gs *GracefulServer) WatchReload(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			gs.logger.Info("received SIGHUP")
			_ = gs.ReloadConfig()
		}
	}
}
