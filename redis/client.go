package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
)

// Client is a Redis connection pool managed as a lifecycle component.
// Connections are dialed lazily; Start verifies the server answers.
type Client struct {
	rdb *goredis.Client
	cfg Config
	log *logger.Logger
}

// New creates a Client. It does not connect.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, fmt.Errorf("redis: addr is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &Client{rdb: rdb, cfg: cfg, log: log.WithComponent("redis")}, nil
}

// Key prefixes parts with the configured namespace.
func (c *Client) Key(parts ...string) string {
	return c.cfg.KeyPrefix + strings.Join(parts, ":")
}

func (c *Client) Name() string { return "redis" }

// Start pings the server.
func (c *Client) Start(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}
	c.log.Info("Redis connected", logger.Fields("addr", c.cfg.Addr, "db", c.cfg.DB))
	return nil
}

// Stop closes the pool.
func (c *Client) Stop(context.Context) error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.cfg.Addr, err)
	}
	return nil
}

func (c *Client) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{Name: c.Name(), Status: observability.HealthStatusUp}
	if err := c.Ping(ctx); err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = err.Error()
	}
	return h
}
