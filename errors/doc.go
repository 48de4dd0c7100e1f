// Package errors provides the unified error type surfaced by the transcription
// pipeline. Every failure that reaches a caller is an *AppError carrying one of
// a fixed set of codes, a short human-readable message and a retryable flag.
package errors
