package transcription

import (
	"fmt"
	"time"

	"github.com/kbukum/transcribekit/security"
	"github.com/kbukum/transcribekit/util"
	"github.com/kbukum/transcribekit/validation"
)

// Defaults for the client pipeline.
const (
	DefaultTokenPath          = "/api/auth/token"
	DefaultProxyPath          = "/api/transcribe"
	DefaultDirectPath         = "/transcribe"
	DefaultDirectThreshold    = "4MB"
	DefaultMaxFileSize        = "100MB"
	DefaultTimeout            = 60 * time.Second
	DefaultMaxAttempts        = 3
	DefaultBackoffStep        = time.Second
	DefaultTokenRefreshMargin = 5 * time.Minute
)

// RetryConfig controls the submission retry loop.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	BackoffStep time.Duration `yaml:"backoff_step" mapstructure:"backoff_step" validate:"gte=0"`
}

// TokenCacheConfig persists direct-path tokens between runs, sealed with Key.
type TokenCacheConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Key       string `yaml:"key" mapstructure:"key" validate:"required_with=Path"`
	Algorithm string `yaml:"algorithm" mapstructure:"algorithm" validate:"omitempty,oneof=chacha20-poly1305 aes-256-gcm"`
}

// Config configures the transcription client.
type Config struct {
	// APIBaseURL is the external service, used by the direct path.
	APIBaseURL string `yaml:"api_base_url" mapstructure:"api_base_url" validate:"required,url"`
	// RelayBaseURL is the same-origin relay, used by the proxied path and
	// the token endpoint.
	RelayBaseURL string `yaml:"relay_base_url" mapstructure:"relay_base_url" validate:"required,url"`

	TokenPath  string `yaml:"token_path" mapstructure:"token_path" validate:"required"`
	ProxyPath  string `yaml:"proxy_path" mapstructure:"proxy_path" validate:"required"`
	DirectPath string `yaml:"direct_path" mapstructure:"direct_path" validate:"required"`

	// DirectThreshold is the largest payload sent through the relay.
	DirectThreshold string `yaml:"direct_threshold" mapstructure:"direct_threshold" validate:"required,size"`
	// MaxFileSize is the intake cap.
	MaxFileSize string `yaml:"max_file_size" mapstructure:"max_file_size" validate:"required,size"`

	// Timeout bounds each transport attempt.
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	Retry              RetryConfig   `yaml:"retry" mapstructure:"retry"`
	TokenRefreshMargin time.Duration `yaml:"token_refresh_margin" mapstructure:"token_refresh_margin" validate:"gte=0"`
	ChunkSize          int           `yaml:"chunk_size" mapstructure:"chunk_size" validate:"oneof=60 120 180"`

	// TLS applies to both the relay and the upstream service.
	TLS        security.TLSConfig `yaml:"tls" mapstructure:"tls"`
	TokenCache TokenCacheConfig   `yaml:"token_cache" mapstructure:"token_cache"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.TokenPath = util.Coalesce(c.TokenPath, DefaultTokenPath)
	c.ProxyPath = util.Coalesce(c.ProxyPath, DefaultProxyPath)
	c.DirectPath = util.Coalesce(c.DirectPath, DefaultDirectPath)
	c.DirectThreshold = util.Coalesce(c.DirectThreshold, DefaultDirectThreshold)
	c.MaxFileSize = util.Coalesce(c.MaxFileSize, DefaultMaxFileSize)
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultMaxAttempts
	}
	if c.Retry.BackoffStep == 0 {
		c.Retry.BackoffStep = DefaultBackoffStep
	}
	if c.TokenRefreshMargin == 0 {
		c.TokenRefreshMargin = DefaultTokenRefreshMargin
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	return nil
}

// DirectThresholdBytes returns DirectThreshold in bytes.
func (c *Config) DirectThresholdBytes() int64 {
	return util.ParseSizeOr(c.DirectThreshold, 4*util.MiB)
}

// MaxFileSizeBytes returns MaxFileSize in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return util.ParseSizeOr(c.MaxFileSize, 100*util.MiB)
}
