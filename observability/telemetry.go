package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TelemetryConfig switches OTLP export on for a binary. When disabled, spans
// and instruments stay on the no-op global providers.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// Telemetry owns the tracer and meter providers of one binary. It has the
// Name/Start/Stop/CheckHealth shape of a lifecycle component.
type Telemetry struct {
	tracerCfg TracerConfig
	meterCfg  MeterConfig
	enabled   bool
	metrics   *TranscriptionMetrics

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// NewTelemetry prepares providers for serviceName. The instruments returned
// by Metrics are usable right away: the global meter forwards to the OTLP
// provider once Start installs it.
func NewTelemetry(serviceName, environment string, cfg TelemetryConfig) (*Telemetry, error) {
	tc := DefaultTracerConfig(serviceName)
	mc := DefaultMeterConfig(serviceName)
	if environment != "" {
		tc.Environment, mc.Environment = environment, environment
	}
	if cfg.Endpoint != "" {
		tc.Endpoint, mc.Endpoint = cfg.Endpoint, cfg.Endpoint
	}
	tc.Insecure, mc.Insecure = cfg.Insecure, cfg.Insecure
	if cfg.SampleRate > 0 {
		tc.SampleRate = cfg.SampleRate
	}
	if cfg.MetricInterval > 0 {
		mc.Interval = cfg.MetricInterval
	}

	metrics, err := NewTranscriptionMetrics(Meter(serviceName))
	if err != nil {
		return nil, err
	}
	return &Telemetry{tracerCfg: tc, meterCfg: mc, enabled: cfg.Enabled, metrics: metrics}, nil
}

// Metrics returns the pipeline instruments.
func (t *Telemetry) Metrics() *TranscriptionMetrics { return t.metrics }

func (t *Telemetry) Name() string { return "telemetry" }

// Start installs the OTLP providers when enabled.
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.enabled {
		return nil
	}
	tp, err := InitTracer(ctx, t.tracerCfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	mp, err := InitMeter(ctx, t.meterCfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: %w", err)
	}
	t.tp, t.mp = tp, mp
	return nil
}

// Stop flushes and shuts down the providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
		t.mp = nil
	}
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
		t.tp = nil
	}
	return stderrors.Join(errs...)
}

// CheckHealth reports whether export is on.
func (t *Telemetry) CheckHealth(context.Context) Health {
	h := Health{Name: t.Name(), Status: HealthStatusUp}
	if t.enabled {
		h.Details = map[string]string{"endpoint": t.tracerCfg.Endpoint}
	} else {
		h.Message = "export disabled"
	}
	return h
}
