// Package transport sends a transcription request over the proxied or the
// direct upload path, chosen by payload size.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/transcribekit/httpclient"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/provider"
	"github.com/kbukum/transcribekit/transcription"
)

// Upload paths.
const (
	PathProxy  = "proxy"
	PathDirect = "direct"
)

// Config configures a Router.
type Config struct {
	APIBaseURL   string
	RelayBaseURL string
	ProxyPath    string
	DirectPath   string
	// Threshold is the largest payload sent through the relay.
	Threshold int64
	// Timeout bounds a single attempt. Zero means transcription.DefaultTimeout.
	Timeout time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// ConfigFrom derives a Router config from the client config.
func ConfigFrom(c transcription.Config) Config {
	return Config{
		APIBaseURL:   c.APIBaseURL,
		RelayBaseURL: c.RelayBaseURL,
		ProxyPath:    c.ProxyPath,
		DirectPath:   c.DirectPath,
		Threshold:    c.DirectThresholdBytes(),
		Timeout:      c.Timeout,
	}
}

// Option configures a Router.
type Option func(*Router)

// WithMetrics records provider calls.
func WithMetrics(m *observability.TranscriptionMetrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Router) { r.log = l }
}

// Router picks the upload path for a request and performs one attempt on it.
type Router struct {
	threshold int64
	timeout   time.Duration
	providers *provider.Registry[transcription.Provider]
	metrics   *observability.TranscriptionMetrics
	log       *logger.Logger
}

// NewRouter creates the proxy and direct providers. tokens authenticates
// the direct path.
func NewRouter(cfg Config, tokens TokenSource, opts ...Option) (*Router, error) {
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("transport: threshold must be positive")
	}
	if tokens == nil {
		return nil, fmt.Errorf("transport: token source is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = transcription.DefaultTimeout
	}

	r := &Router{
		threshold: cfg.Threshold,
		timeout:   cfg.Timeout,
		providers: transcription.NewRegistry(),
		log:       logger.Get("transport"),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.providers.RegisterFactory(PathProxy, r.factory(cfg, cfg.RelayBaseURL, cfg.ProxyPath, nil))
	r.providers.RegisterFactory(PathDirect, r.factory(cfg, cfg.APIBaseURL, cfg.DirectPath, tokens))
	for _, name := range []string{PathProxy, PathDirect} {
		if _, err := r.providers.Create(name, nil); err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
	}
	return r, nil
}

func (r *Router) factory(cfg Config, baseURL, path string, tokens TokenSource) provider.Factory[transcription.Provider] {
	return func(map[string]any) (transcription.Provider, error) {
		if baseURL == "" {
			return nil, fmt.Errorf("base url is required")
		}
		client, err := httpclient.New(httpclient.Config{
			BaseURL:   baseURL,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		})
		if err != nil {
			return nil, err
		}
		name := PathProxy
		if tokens != nil {
			name = PathDirect
		}
		u := &uploader{client: client, path: path, tokens: tokens}
		p := provider.Func(name, u.upload)
		return provider.Chain(
			provider.WithTracing[*transcription.Request, *transcription.APIResponse]("transport"),
			provider.WithLogging[*transcription.Request, *transcription.APIResponse](r.log),
			provider.WithMetrics[*transcription.Request, *transcription.APIResponse](r.metrics),
		)(p), nil
	}
}

// Timeout returns the per-attempt timeout.
func (r *Router) Timeout() time.Duration { return r.timeout }

// PathFor returns PathDirect iff size is strictly above the threshold.
func (r *Router) PathFor(size int64) string {
	if size > r.threshold {
		return PathDirect
	}
	return PathProxy
}

// Submit validates req locally, then performs a single attempt on the path
// chosen for its size. Local failures never touch the network.
func (r *Router) Submit(ctx context.Context, req *transcription.Request) (*transcription.APIResponse, error) {
	req.ApplyDefaults()
	if appErr := req.Validate(); appErr != nil {
		return nil, appErr
	}

	path := r.PathFor(req.Audio.Size)
	p, ok := r.providers.Get(path)
	if !ok {
		return nil, fmt.Errorf("transport: no provider for path %q", path)
	}
	r.log.WithContext(ctx).Debug("submitting", logger.Fields(
		logger.FieldPath, path,
		logger.FieldSize, req.Audio.Size,
	))
	return p.Execute(ctx, req)
}
