// Command relay serves the token and transcription proxy endpoints used by
// the transcribe client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/transcribekit/bootstrap"
	"github.com/kbukum/transcribekit/config"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/redis"
	"github.com/kbukum/transcribekit/relay"
	"github.com/kbukum/transcribekit/version"
)

// Config is the relay binary's configuration file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Relay                relay.Config                  `yaml:"relay" mapstructure:"relay"`
	// Redis, when set, holds the per-client rate limits shared by all replicas.
	Redis                redis.Config                  `yaml:"redis" mapstructure:"redis"`
	Telemetry            observability.TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = relay.ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Relay.ApplyDefaults()
	if c.Redis.Enabled() {
		c.Redis.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Relay.Validate(); err != nil {
		return err
	}
	if c.Redis.Enabled() && c.Relay.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("redis is only used for rate limiting: set relay.server.rate_limit.requests_per_second")
	}
	return c.Redis.Validate()
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "relay:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "config file (default: searched next to the binary)")
	envFile := flags.String("env-file", "", ".env file to load before reading the environment")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Println(version.GetShortVersion())
		return nil
	}

	var cfg Config
	if err := config.LoadConfig(relay.ServiceName, &cfg,
		config.WithConfigFile(*configFile),
		config.WithEnvFile(*envFile),
	); err != nil {
		return err
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}

	tel, err := observability.NewTelemetry(cfg.Name, cfg.Environment, cfg.Telemetry)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(tel); err != nil {
		return err
	}

	opts := []relay.Option{relay.WithMetrics(tel.Metrics())}
	if cfg.Redis.Enabled() {
		store, err := sharedLimiter(cfg, app.Logger)
		if err != nil {
			return err
		}
		if err := app.RegisterComponent(store.client); err != nil {
			return err
		}
		opts = append(opts, relay.WithLimiter(store.limiter), relay.WithHealthChecker(store))
	}

	r, err := relay.New(cfg.Relay, opts...)
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(r); err != nil {
		return err
	}
	app.OnReady(func(context.Context) error {
		app.Logger.Info("Relay listening", logger.Fields("addr", r.Server().Addr()))
		return nil
	})
	return app.Run(ctx)
}

// limitStore is the Redis-backed limiter shared by relay replicas.
type limitStore struct {
	client  *redis.Client
	limiter *redis.RateLimiter
}

func sharedLimiter(cfg Config, log *logger.Logger) (*limitStore, error) {
	client, err := redis.New(cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	rl := cfg.Relay.Server.RateLimit
	limiter, err := redis.NewRateLimiter(client, relay.ServiceName, rl.RequestsPerSecond, rl.Burst)
	if err != nil {
		return nil, err
	}
	return &limitStore{client: client, limiter: limiter}, nil
}

// CheckHealth reports an unreachable Redis as degraded. Requests keep flowing
// without a limit until it comes back.
func (s *limitStore) CheckHealth(ctx context.Context) observability.Health {
	h := s.client.CheckHealth(ctx)
	if h.Status == observability.HealthStatusDown {
		h.Status = observability.HealthStatusDegraded
	}
	return h
}
