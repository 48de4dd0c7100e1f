// Package relay is the same-origin server the client talks to on its proxied
// path. It hands out short-lived tokens for direct uploads and forwards small
// uploads to the transcription API with the server credential, so the API key
// never reaches the client.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribekit/auth/jwt"
	"github.com/kbukum/transcribekit/httpclient"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/resilience"
	"github.com/kbukum/transcribekit/server"
	"github.com/kbukum/transcribekit/server/middleware"
)

// Routes served by the relay.
const (
	RouteToken      = "/api/auth/token"
	RouteTranscribe = "/api/transcribe"
)

// ServiceName identifies the relay in health reports and logs.
const ServiceName = "relay"

// Relay wires the token and forwarding handlers onto a server.
type Relay struct {
	cfg       Config
	server    *server.Server
	upstream  *httpclient.Client
	tokens    *jwt.Service[*jwt.RegisteredClaims]
	limiter   middleware.Limiter
	checkers  []observability.HealthChecker
	transport http.RoundTripper
	metrics   *observability.TranscriptionMetrics
	now       func() time.Time
	log       *logger.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithTransport overrides the upstream HTTP transport, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(r *Relay) { r.transport = rt }
}

// WithMetrics records relay requests on the given instruments.
func WithMetrics(m *observability.TranscriptionMetrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// WithLimiter replaces the in-process per-client limiter, for example with
// one shared by several replicas. It applies even when
// server.rate_limit.requests_per_second is zero.
func WithLimiter(l middleware.Limiter) Option {
	return func(r *Relay) { r.limiter = l }
}

// WithHealthChecker adds a component to the /health report.
func WithHealthChecker(c observability.HealthChecker) Option {
	return func(r *Relay) { r.checkers = append(r.checkers, c) }
}

// WithClock injects the time source for tokens, the breaker and the limiter.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Relay) { r.log = l }
}

// New builds a relay with its routes registered. Call Start to serve.
func New(cfg Config, opts ...Option) (*Relay, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Relay{cfg: cfg, now: time.Now, log: logger.Get(ServiceName)}
	for _, opt := range opts {
		opt(r)
	}

	tokens, err := jwt.NewService(&cfg.JWT, func() *jwt.RegisteredClaims { return &jwt.RegisteredClaims{} })
	if err != nil {
		return nil, err
	}
	r.tokens = tokens.WithClock(r.now)

	breaker := httpclient.DefaultCircuitBreakerConfig("relay-upstream")
	breaker.MaxFailures = cfg.Breaker.MaxFailures
	breaker.Timeout = cfg.Breaker.Cooldown
	breaker.Now = r.now
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		r.log.Warn("Upstream circuit changed state", logger.Fields(
			"breaker", name, "from", from.String(), "to", to.String()))
	}

	if r.transport == nil {
		tlsCfg, err := cfg.UpstreamTLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("relay config: upstream_%w", err)
		}
		if tlsCfg != nil {
			t := http.DefaultTransport.(*http.Transport).Clone()
			t.TLSClientConfig = tlsCfg
			r.transport = t
		}
	}

	r.upstream, err = httpclient.New(httpclient.Config{
		BaseURL:        cfg.UpstreamURL,
		Timeout:        cfg.UpstreamTimeout,
		Auth:           httpclient.BearerAuth(cfg.APIKey),
		Transport:      r.transport,
		CircuitBreaker: breaker,
	})
	if err != nil {
		return nil, err
	}

	if rl := cfg.Server.RateLimit; r.limiter == nil && rl.RequestsPerSecond > 0 {
		r.limiter = middleware.Local(resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Name:  ServiceName,
			Rate:  rl.RequestsPerSecond,
			Burst: rl.Burst,
			Now:   r.now,
			OnLimit: func(_, key string) {
				r.log.Warn("Client rate limited", logger.Fields("client", key))
			},
		}))
	}

	r.server = server.New(cfg.Server, r.log)
	r.server.ApplyMiddleware(r.metrics)
	r.register(r.server.GinEngine())
	r.server.RegisterDefaultEndpoints(ServiceName, append([]observability.HealthChecker{r}, r.checkers...)...)
	return r, nil
}

func (r *Relay) register(router gin.IRouter) {
	api := router.Group("")
	if r.limiter != nil {
		api.Use(middleware.RateLimit(r.limiter, nil))
	}
	api.POST(RouteToken, r.issueToken)
	api.POST(RouteTranscribe, r.forward)
}

// Server returns the underlying HTTP server.
func (r *Relay) Server() *server.Server {
	return r.server
}

// Name identifies the relay as a lifecycle component.
func (r *Relay) Name() string { return ServiceName }

// Start binds the listener and serves in the background.
func (r *Relay) Start(ctx context.Context) error {
	return r.server.Start(ctx)
}

// Stop shuts the server down gracefully.
func (r *Relay) Stop(ctx context.Context) error {
	return r.server.Stop(ctx)
}

// CheckHealth reports the upstream circuit. An open circuit degrades the
// relay without taking it down, since the token endpoint still works.
func (r *Relay) CheckHealth(context.Context) observability.Health {
	state := r.upstream.CircuitState()
	h := observability.Health{
		Name:    "upstream",
		Status:  observability.HealthStatusUp,
		Details: map[string]string{"circuit": state.String()},
	}
	if state != resilience.StateClosed {
		h.Status = observability.HealthStatusDegraded
		h.Message = "upstream circuit is " + state.String()
	}
	return h
}
