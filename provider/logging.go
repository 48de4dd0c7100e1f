package provider

import (
	"context"
	"time"

	"github.com/kbukum/transcribekit/logger"
)

// WithLogging returns a Middleware that logs each Execute call with the
// provider name and duration. Failures log at warn: callers decide whether
// an error is final.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log}
	}
}

type loggingRR[I, O any] struct {
	inner RequestResponse[I, O]
	log   *logger.Logger
}

func (l *loggingRR[I, O]) Name() string                         { return l.inner.Name() }
func (l *loggingRR[I, O]) IsAvailable(ctx context.Context) bool { return l.inner.IsAvailable(ctx) }

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := l.inner.Execute(ctx, input)

	fields := logger.DurationFields("provider.execute", time.Since(start))
	fields[logger.FieldProvider] = l.inner.Name()

	log := l.log.WithContext(ctx)
	if err != nil {
		log.Warn("provider execute failed", logger.MergeWithError(fields, err))
	} else {
		log.Debug("provider execute ok", fields)
	}

	return output, err
}
