package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-circuits/pkg/api"
	"github.com/dd0wney/cluso-circuits/pkg/api/middleware"
	"github.com/dd0wney/cluso-circuits/pkg/broadcast"
	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/config"
	"github.com/dd0wney/cluso-circuits/pkg/health"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/metrics"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
	"github.com/dd0wney/cluso-circuits/pkg/scheduler"
	"github.com/dd0wney/cluso-circuits/pkg/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and GraphQL service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
	cmd.Flags().BoolVar(&seedDemo, "demo", false, "start with the demo circuit instead of an empty canvas")
	return cmd
}

// loadConfig reads the config file and applies the --log-level flag.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		if _, ok := logging.LookupLevel(logLevel); !ok {
			return cfg, fmt.Errorf("unknown log level %q", logLevel)
		}
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel())
	logging.SetDefaultLogger(logger)
	logger.Info("circuitd starting", logging.String("version", version))

	registry := metrics.NewRegistry()
	broker := pubsub.NewBroker(0)
	defer broker.Shutdown()

	c := circuit.New(
		circuit.WithLogger(logger),
		circuit.WithNotifier(broker),
		circuit.WithObserver(registry),
	)
	if seedDemo {
		if _, err := buildDemo(c); err != nil {
			return fmt.Errorf("seeding demo circuit: %w", err)
		}
	}

	checker := health.NewHealthChecker()
	checker.RegisterLivenessCheck("process", health.AliveCheck())
	checker.RegisterReadinessCheck("connections", health.ConnectionIntegrityCheck(c))
	checker.RegisterCheck("connections", health.ConnectionIntegrityCheck(c))
	checker.RegisterCheck("loops", health.LoopCheck(c, registry.SetLoops))
	checker.RegisterCheck("graph", health.GraphCheck(c))
	checker.RegisterCheck("memory", health.MemoryCheck())

	apiConfig, err := apiConfigFrom(cfg)
	if err != nil {
		return err
	}
	apiServer, err := api.NewServer(c, broker, registry, checker, logger, apiConfig)
	if err != nil {
		return err
	}
	defer apiServer.Close()

	gs := server.NewGracefulServer(cfg.Server.Addr(), apiServer.Handler(),
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
	gs.SetConfigReloadFunc(func() error {
		next, err := loadConfig()
		if err != nil {
			return err
		}
		logger.SetLevel(next.LogLevel())
		return nil
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gs.Run(ctx) })
	g.Go(func() error { return gs.WatchReload(ctx) })

	if cfg.Timers.Enabled {
		sched := scheduler.New(c,
			scheduler.WithResolution(cfg.Timers.Resolution),
			scheduler.WithRecorder(registry),
			scheduler.WithLogger(logger),
		)
		g.Go(func() error { return sched.Run(ctx) })
	}

	if cfg.Broadcast.Enabled {
		b := broadcast.New(broker, broadcast.Config{Address: cfg.Broadcast.Address}, registry, logger)
		checker.RegisterCheck("broadcast", health.DependencyCheck("broadcast", b.Ping))
		g.Go(func() error { return b.Run(ctx) })
	}

	err = g.Wait()
	logger.Info("circuitd stopped", logging.Uint64("passes", c.Passes()))
	return err
}

func apiConfigFrom(cfg config.Config) (api.Config, error) {
	trusted, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return api.Config{}, fmt.Errorf("server.trusted_proxies: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORS.AllowedOrigins
	cors.AllowCredentials = cfg.CORS.AllowCredentials

	apiConfig := api.Config{
		Version:        version,
		CORS:           cors,
		TrustedProxies: trusted,
	}
	if cfg.RateLimit.Enabled {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.BurstSize = cfg.RateLimit.Burst
		apiConfig.RateLimit = rl
	}
	return apiConfig, nil
}
