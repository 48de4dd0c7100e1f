package provider

import (
	"context"
	"time"

	"github.com/kbukum/transcribekit/observability"
)

// WithMetrics returns a Middleware that records a call counter and a
// duration histogram per provider. A nil metrics value disables recording.
func WithMetrics[I, O any](metrics *observability.TranscriptionMetrics) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if metrics == nil {
			return inner
		}
		return &metricsRR[I, O]{inner: inner, metrics: metrics}
	}
}

type metricsRR[I, O any] struct {
	inner   RequestResponse[I, O]
	metrics *observability.TranscriptionMetrics
}

func (m *metricsRR[I, O]) Name() string                         { return m.inner.Name() }
func (m *metricsRR[I, O]) IsAvailable(ctx context.Context) bool { return m.inner.IsAvailable(ctx) }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordProviderCall(ctx, m.inner.Name(), status, time.Since(start))

	return output, err
}
