// Package token obtains and caches the short-lived bearer token used by the
// direct transport path.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/transcribekit/auth/jwt"
	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/httpclient"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/util"
)

// DefaultRefreshMargin is how long before expiry a cached token stops being used.
const DefaultRefreshMargin = 5 * time.Minute

// Response is the token endpoint body.
type Response struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	IssuedAt  int64  `json:"issued_at"`
}

// Config configures a Manager.
type Config struct {
	// BaseURL is the relay origin.
	BaseURL string
	// Path is the token endpoint under BaseURL.
	Path          string
	RefreshMargin time.Duration
	Timeout       time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Manager hands out a valid token, refreshing it when the cached one is
// missing or inside the refresh margin. Concurrent refreshes share one request.
type Manager struct {
	client  *httpclient.Client
	path    string
	margin  time.Duration
	store   Store
	now     func() time.Time
	metrics *observability.TranscriptionMetrics
	log     *logger.Logger
	group   singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore replaces the in-memory store.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records refreshes on the given instruments.
func WithMetrics(metrics *observability.TranscriptionMetrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a Manager for the relay at cfg.BaseURL.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("token: base url is required")
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = DefaultRefreshMargin
	}
	client, err := httpclient.New(httpclient.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}

	m := &Manager{
		client: client,
		path:   cfg.Path,
		margin: cfg.RefreshMargin,
		store:  NewMemoryStore(),
		now:    time.Now,
		log:    logger.Get("token"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetToken returns the cached token while now < expiry - margin, otherwise
// fetches a new one. Failures are AuthUnavailable. A caller whose context
// ends first gets a retryable Timeout while the shared refresh carries on.
func (m *Manager) GetToken(ctx context.Context) (string, error) {
	if tok, ok := m.store.Load(); ok && tok.Fresh(m.now(), m.margin) {
		return tok.Value, nil
	}

	// The shared refresh outlives any single caller's cancellation.
	ch := m.group.DoChan("token", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", errors.Timeout("token").WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next GetToken refreshes.
func (m *Manager) Invalidate() {
	m.store.Clear()
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanTokenRefresh)
	defer span.End()

	start := m.now()
	value, err := m.fetch(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		m.record(ctx, "error")
		m.log.WithContext(ctx).Warn("token refresh failed", logger.ErrorFields("token-refresh", err))
		return "", err
	}
	m.record(ctx, "ok")
	m.log.WithContext(ctx).Debug("token refreshed", logger.Fields(
		"token", util.MaskSecret(value, 6),
		logger.FieldDuration, m.now().Sub(start).Milliseconds(),
	))
	return value, nil
}

func (m *Manager) fetch(ctx context.Context) (string, error) {
	resp, err := m.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: m.path})
	if err != nil {
		return "", errors.AuthUnavailable(err)
	}

	var body Response
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", errors.AuthUnavailable(fmt.Errorf("decode token response: %w", err))
	}
	if body.Token == "" {
		return "", errors.AuthUnavailable(fmt.Errorf("token response has no token"))
	}

	now := m.now()
	var expiresAt time.Time
	switch {
	case body.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	default:
		if exp, ok := jwt.ExpiresAt(body.Token); ok {
			expiresAt = exp
		}
	}

	if expiresAt.IsZero() {
		// No lifetime known: hand it out once and fetch again next time.
		m.store.Clear()
		return body.Token, nil
	}
	m.store.Save(Token{Value: body.Token, ExpiresAt: expiresAt})
	return body.Token, nil
}

func (m *Manager) record(ctx context.Context, status string) {
	if m.metrics != nil {
		m.metrics.RecordTokenRefresh(ctx, status)
	}
}
