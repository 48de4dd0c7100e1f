package relay

import (
	"fmt"
	"time"

	"github.com/kbukum/transcribekit/auth/jwt"
	"github.com/kbukum/transcribekit/security"
	"github.com/kbukum/transcribekit/server"
	"github.com/kbukum/transcribekit/util"
	"github.com/kbukum/transcribekit/validation"
)

// Defaults for the relay.
const (
	DefaultUpstreamPath    = "/transcribe"
	DefaultUpstreamTimeout = 60 * time.Second
	DefaultTokenTTL        = time.Hour
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// BreakerConfig guards the upstream.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive upstream failures that opens the circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=1"`
	// Cooldown is how long the circuit stays open before a probe.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown" validate:"gt=0"`
}

// Config configures the relay.
type Config struct {
	Server server.Config `yaml:"server" mapstructure:"server" validate:"-"`

	// UpstreamURL is the transcription API origin.
	UpstreamURL  string `yaml:"upstream_url" mapstructure:"upstream_url" validate:"required,url"`
	UpstreamPath string `yaml:"upstream_path" mapstructure:"upstream_path" validate:"required"`
	// APIKey is the server credential sent upstream. It never leaves the relay.
	APIKey          string        `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout" mapstructure:"upstream_timeout" validate:"gt=0"`
	// UpstreamTLS trusts a private CA or presents a client certificate upstream.
	UpstreamTLS security.TLSConfig `yaml:"upstream_tls" mapstructure:"upstream_tls"`

	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`

	// JWT signs the tokens handed out for direct uploads.
	JWT jwt.Config `yaml:"jwt" mapstructure:"jwt" validate:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.Server.ApplyDefaults()
	c.UpstreamPath = util.Coalesce(c.UpstreamPath, DefaultUpstreamPath)
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if c.Breaker.MaxFailures <= 0 {
		c.Breaker.MaxFailures = DefaultBreakerFailures
	}
	if c.Breaker.Cooldown <= 0 {
		c.Breaker.Cooldown = DefaultBreakerCooldown
	}
	if c.JWT.TTL <= 0 {
		c.JWT.TTL = DefaultTokenTTL
	}
	c.JWT.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("relay config: %w", err)
	}
	if err := c.JWT.Validate(); err != nil {
		return fmt.Errorf("relay config: %w", err)
	}
	if err := c.UpstreamTLS.Validate(); err != nil {
		return fmt.Errorf("relay config: upstream_%w", err)
	}
	return nil
}
