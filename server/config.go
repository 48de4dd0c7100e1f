package server

import (
	"fmt"

	"github.com/kbukum/transcribekit/security"
	"github.com/kbukum/transcribekit/util"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string          `yaml:"host" mapstructure:"host"`
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  int             `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int             `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int             `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	MaxBodySize  string          `yaml:"max_body_size" mapstructure:"max_body_size"` // e.g. "5MB"
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	// TLS serves HTTPS when a certificate is configured, h2c otherwise.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// RateLimitConfig is a per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the refill rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30
	}
	// Forwarded uploads wait on the upstream, which may take a minute.
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 90
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "5MB"
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if _, err := util.ParseSize(c.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("server.%w", err)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be non-negative (got: %g)", c.RateLimit.RequestsPerSecond)
	}
	return nil
}

// MaxBodyBytes returns MaxBodySize in bytes.
func (c *Config) MaxBodyBytes() int64 {
	return util.ParseSizeOr(c.MaxBodySize, 5*util.MiB)
}
