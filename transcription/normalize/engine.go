// Package normalize runs transport attempts with bounded linear retries and
// maps every failure onto the transcription error taxonomy.
package normalize

import (
	"context"
	"time"

	"github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/resilience"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffStep = time.Second
)

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int
	BackoffStep time.Duration
}

// RetryNotice describes a scheduled retry.
type RetryNotice struct {
	// Attempt is the attempt that failed, 1-based.
	Attempt int
	Delay   time.Duration
	Cause   *errors.AppError
}

// Engine retries retryable failures and normalizes the final one.
type Engine struct {
	cfg     Config
	sleep   resilience.SleepFunc
	online  OnlineChecker
	onRetry func(context.Context, RetryNotice)
	log     *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleep replaces the delay function, mostly for tests.
func WithSleep(sleep resilience.SleepFunc) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// WithOnlineChecker sets the connectivity probe used for NoConnectivity messages.
func WithOnlineChecker(c OnlineChecker) Option {
	return func(e *Engine) { e.online = c }
}

// WithOnRetry registers a hook called before each retry delay.
func WithOnRetry(fn func(context.Context, RetryNotice)) Option {
	return func(e *Engine) { e.onRetry = fn }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine. Zero config values take the defaults.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = DefaultBackoffStep
	}
	e := &Engine{
		cfg:    cfg,
		sleep:  resilience.Sleep,
		online: alwaysOnline{},
		log:    logger.Get("normalize"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxAttempts returns the attempt budget.
func (e *Engine) MaxAttempts() int { return e.cfg.MaxAttempts }

// Do calls fn up to MaxAttempts times, waiting attempt × BackoffStep after
// each retryable failure. Every attempt gets the same inputs; fn receives the
// 1-based attempt number. A done ctx stops further attempts and yields Timeout.
func Do[T any](ctx context.Context, e *Engine, fn func(ctx context.Context, attempt int) (T, error)) (T, *errors.AppError) {
	result, err := resilience.Retry(ctx, resilience.RetryConfig{
		MaxAttempts: e.cfg.MaxAttempts,
		Backoff:     resilience.LinearBackoff(e.cfg.BackoffStep),
		RetryIf: func(err error) bool {
			return e.Normalize(err).Retryable
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			notice := RetryNotice{Attempt: attempt, Delay: delay, Cause: e.Normalize(err)}
			e.log.WithContext(ctx).Warn("attempt failed, retrying", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldErrorCode, string(notice.Cause.Code),
				"delay_ms", delay.Milliseconds(),
			))
			if e.onRetry != nil {
				e.onRetry(ctx, notice)
			}
		},
		Sleep: e.sleep,
	}, func(ctx context.Context, attempt int) (T, error) {
		v, err := fn(ctx, attempt)
		if err != nil {
			return v, e.Normalize(err)
		}
		return v, nil
	})
	if err != nil {
		return result, e.Normalize(err)
	}
	return result, nil
}
