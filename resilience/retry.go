package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff returns the delay to wait after the given failed attempt (1-based)
// before the next one.
type Backoff func(attempt int) time.Duration

// LinearBackoff waits attempt × step: step after the first failure, 2×step
// after the second, and so on.
func LinearBackoff(step time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// ExponentialBackoff waits initial × factor^(attempt-1), capped at maxDelay, with
// ±jitter applied as a fraction of the delay.
func ExponentialBackoff(initial, maxDelay time.Duration, factor, jitter float64) Backoff {
	return func(attempt int) time.Duration {
		d := float64(initial) * math.Pow(factor, float64(attempt-1))
		if jitter > 0 {
			d += (rand.Float64()*2 - 1) * d * jitter
		}
		if d > float64(maxDelay) {
			d = float64(maxDelay)
		}
		if d < 0 {
			d = float64(initial)
		}
		return time.Duration(d)
	}
}

// SleepFunc pauses for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	MaxAttempts int
	// Backoff computes the delay after a failed attempt.
	Backoff Backoff
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
	// OnRetry is called before each delay with the failed attempt number.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep waits between attempts. Defaults to Sleep.
	Sleep SleepFunc
}

// DefaultRetryConfig returns three attempts with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, 0.1),
		RetryIf:     func(error) bool { return true },
		Sleep:       Sleep,
	}
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. fn receives the 1-based attempt number. The
// context is checked before every attempt and during every delay; when it is
// done, Retry returns ctx.Err() without calling fn again.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = LinearBackoff(0)
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(error) bool { return true }
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts || !cfg.RetryIf(err) {
			break
		}

		delay := cfg.Backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if err := cfg.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// RetryFunc is Retry for functions that return only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) error) error {
	_, err := Retry(ctx, cfg, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}
