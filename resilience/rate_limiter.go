package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies this rate limiter in logs.
	Name string
	// Rate is the number of tokens added per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// OnLimit is called with the name (and key, for keyed limiters) when a
	// request is turned away.
	OnLimit func(name, key string)
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  1.0,
		Burst: 5,
	}
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 1.0
	}
	if c.Burst <= 0 {
		c.Burst = max(1, int(c.Rate))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// bucket is a single token bucket. Callers hold the owning lock.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func (b *bucket) take(now time.Time, rate float64, burst int) bool {
	b.tokens += now.Sub(b.lastSeen).Seconds() * rate
	if b.tokens > float64(burst) {
		b.tokens = float64(burst)
	}
	b.lastSeen = now
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// RateLimiter is a token bucket shared by all callers.
type RateLimiter struct {
	config RateLimiterConfig

	mu     sync.Mutex
	bucket bucket
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	return &RateLimiter{
		config: config,
		bucket: bucket{tokens: float64(config.Burst), lastSeen: config.Now()},
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	ok := rl.bucket.take(rl.config.Now(), rl.config.Rate, rl.config.Burst)
	rl.mu.Unlock()
	if !ok && rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name, "")
	}
	return ok
}

// Execute runs fn if a token is available and returns ErrRateLimited otherwise.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// KeyedRateLimiter keeps one token bucket per key, such as a client IP.
// Buckets idle for longer than it takes to refill are dropped on access.
type KeyedRateLimiter struct {
	config RateLimiterConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewKeyedRateLimiter creates an empty keyed limiter.
func NewKeyedRateLimiter(config RateLimiterConfig) *KeyedRateLimiter {
	config.applyDefaults()
	return &KeyedRateLimiter{
		config:    config,
		buckets:   make(map[string]*bucket),
		lastSweep: config.Now(),
	}
}

// Allow takes a token from key's bucket if one is available.
func (k *KeyedRateLimiter) Allow(key string) bool {
	now := k.config.Now()

	k.mu.Lock()
	k.sweep(now)
	b, found := k.buckets[key]
	if !found {
		b = &bucket{tokens: float64(k.config.Burst), lastSeen: now}
		k.buckets[key] = b
	}
	ok := b.take(now, k.config.Rate, k.config.Burst)
	k.mu.Unlock()

	if !ok && k.config.OnLimit != nil {
		k.config.OnLimit(k.config.Name, key)
	}
	return ok
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// sweep drops buckets that would be full again by now.
func (k *KeyedRateLimiter) sweep(now time.Time) {
	refill := time.Duration(float64(k.config.Burst) / k.config.Rate * float64(time.Second))
	if now.Sub(k.lastSweep) < refill {
		return
	}
	k.lastSweep = now
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) >= refill {
			delete(k.buckets, key)
		}
	}
}
