// Package resilience provides the fault-tolerance primitives used by the
// client pipeline and the relay.
//
//   - Retry: bounded attempts with a pluggable Backoff and a cancellable,
//     injectable Sleep so tests never wait on the wall clock
//   - Bulkhead: caps in-flight calls; with one slot it is a re-entry gate
//   - CircuitBreaker: fails fast while an upstream keeps failing
//   - RateLimiter and KeyedRateLimiter: token buckets, optionally per key
//
// The relay composes them around its upstream call:
//
//	if !limiter.Allow(clientIP) {
//	    return errors.RateLimited()
//	}
//	err := breaker.Execute(func() error { return forward(ctx, req) })
package resilience
