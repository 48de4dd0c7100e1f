// Package server hosts the relay: a Gin engine served over HTTP/1.1 and
// h2c, with lifecycle management and a shared middleware stack.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: Panic recovery with structured logging
//   - RequestID: Request ID generation and propagation
//   - RequestLogger: Request logging with duration tracking
//   - Metrics: Request counts by route and status
//   - BodySizeLimit: Request body size limits, 413 when exceeded
//   - RateLimit: Per-client Limiter (in-process bucket or shared store), 429 when exceeded
//
// Errors are written as `{"detail": "..."}`, the same shape the upstream
// transcription API uses.
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: Health check aggregation
//   - /version: Build version information
package server
