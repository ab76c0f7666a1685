// Package config loads circuitd settings from an optional YAML file and the
// environment, then validates them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
	Timers    TimerConfig     `yaml:"timers"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For and X-Real-IP
	// headers are believed when rate limiting by client IP.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CORSConfig lists origins allowed to call the API from a browser. Empty means
// cross-origin requests are refused.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// TimerConfig controls the timer scheduler. Every Resolution the scheduler
// advances armed timers by one step (one second of timer time).
type TimerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Resolution time.Duration `yaml:"resolution"`
}

// BroadcastConfig controls the nanomsg PUB socket.
type BroadcastConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// RateLimitConfig bounds API requests per client IP.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Timers: TimerConfig{
			Enabled:    true,
			Resolution: time.Second,
		},
		Broadcast: BroadcastConfig{
			Address: "tcp://127.0.0.1:40899",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped when
// path is empty), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("config file %s not found", path)
			}
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("CIRCUIT_CORS_ORIGINS"); ok {
		c.CORS.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("CIRCUIT_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = splitList(v)
	}
	if v, ok := lookup("CIRCUIT_BROADCAST_ADDR"); ok && v != "" {
		c.Broadcast.Enabled = true
		c.Broadcast.Address = v
	}
	if v, ok := lookup("CIRCUIT_TIMER_RESOLUTION"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CIRCUIT_TIMER_RESOLUTION: %w", err)
		}
		c.Timers.Resolution = d
	}
	return nil
}

// fillDefaults restores built-in values for settings a file left blank or zero.
func (c *Config) fillDefaults() {
	def := Default()
	c.Server.ShutdownTimeout = validation.DefaultOrDuration(c.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	c.Log.Level = validation.DefaultOr(strings.TrimSpace(c.Log.Level), def.Log.Level)
	c.Timers.Resolution = validation.DefaultOrDuration(c.Timers.Resolution, def.Timers.Resolution)
	c.Broadcast.Address = validation.DefaultOr(c.Broadcast.Address, def.Broadcast.Address)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	cv := validation.NewConfigValidator("config")
	cv.RangeInt("server.port", c.Server.Port, 0, 65535).
		ListenAddr("server.addr", c.Server.Addr()).
		RangeDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second, 5*time.Minute).
		OneOf("log.level", strings.ToLower(c.Log.Level), logging.LevelNames).
		When(c.Timers.Enabled, func(v *validation.ConfigValidator) {
			v.RangeDuration("timers.resolution", c.Timers.Resolution, 10*time.Millisecond, time.Minute)
		}).
		When(c.Broadcast.Enabled, func(v *validation.ConfigValidator) {
			v.Required("broadcast.address", c.Broadcast.Address).
				Custom("broadcast.address", func() error {
					if !strings.Contains(c.Broadcast.Address, "://") {
						return fmt.Errorf("%q must be a transport URL such as tcp://host:port", c.Broadcast.Address)
					}
					return nil
				})
		}).
		When(c.RateLimit.Enabled, func(v *validation.ConfigValidator) {
			v.PositiveFloat("ratelimit.requests_per_second", c.RateLimit.RequestsPerSecond).
				Positive("ratelimit.burst", c.RateLimit.Burst)
		}).
		Custom("server.trusted_proxies", func() error {
			for _, p := range c.Server.TrustedProxies {
				if _, _, err := net.ParseCIDR(p); err == nil {
					continue
				}
				if net.ParseIP(p) == nil {
					return fmt.Errorf("%q is neither an IP nor a CIDR", p)
				}
			}
			return nil
		}).
		Custom("cors.allowed_origins", func() error {
			for _, o := range c.CORS.AllowedOrigins {
				if o == "*" && c.CORS.AllowCredentials {
					return errors.New("wildcard origin cannot be combined with credentials")
				}
			}
			return nil
		})
	return cv.Validate()
}

// LogLevel returns the configured level.
func (c Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}
