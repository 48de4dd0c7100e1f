package session

import (
	"fmt"
	"net/http"

	"github.com/kbukum/transcribekit/encryption"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/transcription"
	"github.com/kbukum/transcribekit/transcription/intake"
	"github.com/kbukum/transcribekit/transcription/normalize"
	"github.com/kbukum/transcribekit/transcription/token"
	"github.com/kbukum/transcribekit/transcription/transport"
)

// Deps are optional shared collaborators for Build.
type Deps struct {
	Metrics *observability.TranscriptionMetrics
	// Transport overrides the HTTP transport of every client.
	Transport http.RoundTripper
	// TokenStore replaces the token store, e.g. to share one across sessions.
	TokenStore token.Store
}

// Build wires a Session from the client configuration. Deps left empty are
// built from cfg: a TLS transport from cfg.TLS and a sealed file token store
// from cfg.TokenCache. opts are applied after the configured defaults.
func Build(cfg transcription.Config, deps Deps, opts ...Option) (*Session, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Transport == nil {
		tlsCfg, err := cfg.TLS.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		if tlsCfg != nil {
			t := http.DefaultTransport.(*http.Transport).Clone()
			t.TLSClientConfig = tlsCfg
			deps.Transport = t
		}
	}
	if deps.TokenStore == nil && cfg.TokenCache.Path != "" {
		sealer, err := encryption.New(cfg.TokenCache.Key,
			encryption.WithAlgorithm(encryption.Algorithm(cfg.TokenCache.Algorithm)))
		if err != nil {
			return nil, fmt.Errorf("session: token cache: %w", err)
		}
		store, err := token.NewFileStore(cfg.TokenCache.Path, cfg.RelayBaseURL, sealer)
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		deps.TokenStore = store
	}

	tokenOpts := []token.Option{}
	if deps.Metrics != nil {
		tokenOpts = append(tokenOpts, token.WithMetrics(deps.Metrics))
	}
	if deps.TokenStore != nil {
		tokenOpts = append(tokenOpts, token.WithStore(deps.TokenStore))
	}
	tokens, err := token.NewManager(token.Config{
		BaseURL:       cfg.RelayBaseURL,
		Path:          cfg.TokenPath,
		RefreshMargin: cfg.TokenRefreshMargin,
		Timeout:       cfg.Timeout,
		Transport:     deps.Transport,
	}, tokenOpts...)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	tcfg := transport.ConfigFrom(cfg)
	tcfg.Transport = deps.Transport
	router, err := transport.NewRouter(tcfg, tokens, transport.WithMetrics(deps.Metrics))
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	base := []Option{
		WithIntake(intake.New(cfg.MaxFileSizeBytes())),
		WithEngine(normalize.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BackoffStep: cfg.Retry.BackoffStep,
		}),
		WithChunkSize(cfg.ChunkSize),
		WithMetrics(deps.Metrics),
	}
	return New(router, append(base, opts...)...), nil
}
