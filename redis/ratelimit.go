package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RateLimiter allows Burst requests per key in each window of Burst/Rate
// seconds, counted in Redis so every replica sees the same totals.
type RateLimiter struct {
	client *Client
	name   string
	burst  int64
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter returns a limiter averaging rate requests per second per key.
func NewRateLimiter(client *Client, name string, rate float64, burst int) (*RateLimiter, error) {
	if rate <= 0 || burst <= 0 {
		return nil, fmt.Errorf("redis: rate and burst must be positive (got %g, %d)", rate, burst)
	}
	window := time.Duration(float64(burst) / rate * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{
		client: client,
		name:   name,
		burst:  int64(burst),
		window: window,
		now:    time.Now,
	}, nil
}

// WithClock injects the time source.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// Window returns the counting window.
func (l *RateLimiter) Window() time.Duration { return l.window }

// Allow counts one request for key and reports whether it is within budget.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	k := l.client.Key("ratelimit", l.name, key, strconv.FormatInt(slot, 10))

	pipe := l.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= l.burst, nil
}
