// Package redis connects the relay to a shared Redis so that several relay
// replicas enforce one per-client request budget.
package redis

import (
	"fmt"
	"time"
)

// Config holds the connection settings. An empty Addr disables Redis.
type Config struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	// KeyPrefix namespaces every key written by this process.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// Enabled reports whether an address is configured.
func (c *Config) Enabled() bool {
	return c.Addr != ""
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	// Limiter calls sit on the request path.
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 500 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 500 * time.Millisecond
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "relay:"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DB < 0 {
		return fmt.Errorf("redis.db must be non-negative (got: %d)", c.DB)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be non-negative (got: %d)", c.PoolSize)
	}
	return nil
}
