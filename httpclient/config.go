package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/transcribekit/resilience"
	"github.com/kbukum/transcribekit/version"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultMaxResponseBytes = 10 << 20
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds each Do call through its context. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent on every request. Defaults to version.UserAgent().
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// MaxResponseBytes caps how much of a response body is read. Defaults to 10 MiB.
	MaxResponseBytes int64 `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`

	// Auth is applied to every request unless the request sets its own.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// Transport overrides the default transport.
	Transport http.RoundTripper `yaml:"-" mapstructure:"-"`

	// CircuitBreaker guards the upstream. Nil disables it. Only timeouts,
	// connection failures and 5xx responses count as failures.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("httpclient: max_response_bytes must be positive")
	}
	return nil
}

// DefaultCircuitBreakerConfig returns a circuit breaker config for an upstream.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = IsUpstreamFailure
	return &cfg
}
