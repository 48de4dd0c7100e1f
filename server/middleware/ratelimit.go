package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/resilience"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(*gin.Context) string

// RateLimit returns a Gin middleware that counts one request against the
// caller's budget. Defaults to keying by client IP. A limiter error lets the
// request through and is attached to the context for the request log.
func RateLimit(limiter Limiter, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = IPBasedKey
	}
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), key(c))
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.RateLimited().ToDetail())
			return
		}
		c.Next()
	}
}

// Local adapts an in-process keyed token bucket to a Limiter.
func Local(k *resilience.KeyedRateLimiter) Limiter {
	return localLimiter{k}
}

type localLimiter struct {
	k *resilience.KeyedRateLimiter
}

func (l localLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.k.Allow(key), nil
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
