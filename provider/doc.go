// Package provider defines swappable request/response backends and the
// middleware that wraps them.
//
// A RequestResponse[I, O] takes one input and returns one output. The
// transcription transport registers one per upload path in a Registry and
// picks the instance by name at submit time.
//
// # Middleware
//
// Middleware[I, O] wraps a RequestResponse provider. Use Chain to compose:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("transcribe"),
//	)(rawProvider)
//
// # Usage
//
//	reg := provider.NewRegistry[transcription.Provider]()
//	reg.Set("proxy", proxyProvider)
//	p, ok := reg.Get("proxy")
package provider
