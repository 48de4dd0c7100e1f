package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/transcribekit/logger"
	"github.com/kbukum/transcribekit/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// DefaultMeterConfig returns defaults for local development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP-exporting meter provider as the global one.
// The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// TranscriptionMetrics holds the instruments recorded by the submission
// pipeline, the token manager, transport providers and the relay.
type TranscriptionMetrics struct {
	submissions        metric.Int64Counter
	submissionDuration metric.Float64Histogram
	inFlight           metric.Int64UpDownCounter
	attempts           metric.Int64Counter
	tokenRefreshes     metric.Int64Counter
	providerCalls      metric.Int64Counter
	providerDuration   metric.Float64Histogram
	relayRequests      metric.Int64Counter
}

// NewTranscriptionMetrics creates the instruments on the given meter.
func NewTranscriptionMetrics(meter metric.Meter) (*TranscriptionMetrics, error) {
	var (
		m   TranscriptionMetrics
		err error
	)

	if m.submissions, err = meter.Int64Counter("transcription.submissions",
		metric.WithDescription("Submissions by transport path and outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.submissions counter: %w", err)
	}
	if m.submissionDuration, err = meter.Float64Histogram("transcription.submission.duration",
		metric.WithDescription("Wall-clock duration of submissions"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.submission.duration histogram: %w", err)
	}
	if m.inFlight, err = meter.Int64UpDownCounter("transcription.submissions.active",
		metric.WithDescription("Submissions currently in flight"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.submissions.active counter: %w", err)
	}
	if m.attempts, err = meter.Int64Counter("transcription.attempts",
		metric.WithDescription("Transport attempts including retries"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.attempts counter: %w", err)
	}
	if m.tokenRefreshes, err = meter.Int64Counter("transcription.token.refreshes",
		metric.WithDescription("Token refreshes by status"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.token.refreshes counter: %w", err)
	}
	if m.providerCalls, err = meter.Int64Counter("transcription.provider.calls",
		metric.WithDescription("Provider executions by provider and status"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.provider.calls counter: %w", err)
	}
	if m.providerDuration, err = meter.Float64Histogram("transcription.provider.duration",
		metric.WithDescription("Duration of provider executions"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating transcription.provider.duration histogram: %w", err)
	}
	if m.relayRequests, err = meter.Int64Counter("relay.requests",
		metric.WithDescription("Relay requests by route and status code"),
	); err != nil {
		return nil, fmt.Errorf("creating relay.requests counter: %w", err)
	}

	return &m, nil
}

// SubmissionStarted increments the in-flight gauge.
func (m *TranscriptionMetrics) SubmissionStarted(ctx context.Context) {
	m.inFlight.Add(ctx, 1)
}

// RecordSubmission records a finished submission and decrements the in-flight gauge.
func (m *TranscriptionMetrics) RecordSubmission(ctx context.Context, path, outcome string, duration time.Duration) {
	m.inFlight.Add(ctx, -1)
	m.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("outcome", outcome),
	))
	m.submissionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("path", path),
	))
}

// RecordAttempt records one transport attempt.
func (m *TranscriptionMetrics) RecordAttempt(ctx context.Context, path string, attempt int) {
	m.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.Int("attempt", attempt),
	))
}

// RecordTokenRefresh records a token refresh with status "ok" or "error".
func (m *TranscriptionMetrics) RecordTokenRefresh(ctx context.Context, status string) {
	m.tokenRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordProviderCall records a provider execution.
func (m *TranscriptionMetrics) RecordProviderCall(ctx context.Context, provider, status string, duration time.Duration) {
	m.providerCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	m.providerDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordRelayRequest records a relay request.
func (m *TranscriptionMetrics) RecordRelayRequest(ctx context.Context, route string, status int) {
	m.relayRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
