package observability

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/transcribekit/version"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("transcribe")

	if cfg.ServiceName != "transcribe" {
		t.Errorf("expected ServiceName 'transcribe', got %s", cfg.ServiceName)
	}
	if cfg.ServiceVersion != version.Version {
		t.Errorf("expected build version, got %s", cfg.ServiceVersion)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
	if !cfg.Insecure {
		t.Error("expected Insecure to be true")
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("relay")

	if cfg.ServiceName != "relay" {
		t.Errorf("expected ServiceName 'relay', got %s", cfg.ServiceName)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
}

func TestNewTranscriptionMetrics_Noop(t *testing.T) {
	m, err := NewTranscriptionMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	m.SubmissionStarted(ctx)
	m.RecordAttempt(ctx, "proxy", 1)
	m.RecordTokenRefresh(ctx, "ok")
	m.RecordProviderCall(ctx, "proxy", "ok", time.Millisecond)
	m.RecordRelayRequest(ctx, "/api/transcribe", http.StatusOK)
	m.RecordSubmission(ctx, "proxy", "succeeded", 100*time.Millisecond)
}

func TestTranscriptionMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewTranscriptionMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.RecordAttempt(ctx, "direct", 1)
	m.RecordAttempt(ctx, "direct", 2)
	m.SubmissionStarted(ctx)
	m.RecordSubmission(ctx, "direct", "server_error", time.Second)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if data, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	if sums["transcription.attempts"] != 2 {
		t.Errorf("expected 2 attempts, got %d", sums["transcription.attempts"])
	}
	if sums["transcription.submissions"] != 1 {
		t.Errorf("expected 1 submission, got %d", sums["transcription.submissions"])
	}
	if sums["transcription.submissions.active"] != 0 {
		t.Errorf("expected no active submissions, got %d", sums["transcription.submissions.active"])
	}
}

func TestServiceHealth_Check(t *testing.T) {
	up := HealthCheckerFunc(func(context.Context) Health { return Health{Name: "token", Status: HealthStatusUp} })
	degraded := HealthCheckerFunc(func(context.Context) Health {
		return Health{Name: "upstream", Status: HealthStatusDegraded, Details: map[string]string{"circuit": "half-open"}}
	})

	sh := NewServiceHealth("relay", "1.0.0").Check(context.Background(), up, degraded)
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}
	if len(sh.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(sh.Components))
	}
	if sh.HTTPStatus() != http.StatusOK {
		t.Errorf("degraded should answer 200, got %d", sh.HTTPStatus())
	}
}

func TestServiceHealth_DegradedDoesNotOverrideDown(t *testing.T) {
	sh := NewServiceHealth("relay", "1.0.0")
	sh.AddComponent(Health{Name: "a", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "b", Status: HealthStatusDegraded})

	if sh.Status != HealthStatusDown {
		t.Errorf("expected 'down' not overridden by 'degraded', got %s", sh.Status)
	}
	if sh.HTTPStatus() != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", sh.HTTPStatus())
	}
}

func TestStartSpanAndAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), SpanSubmission)
	SetSpanAttribute(ctx, AttrPath, "direct")
	SetSpanAttribute(ctx, AttrAttempt, 2)
	SetSpanAttribute(ctx, AttrFileSize, int64(5<<20))
	SetSpanAttribute(ctx, "ratio", 0.5)
	SetSpanAttribute(ctx, "flag", true)
	SetSpanAttribute(ctx, "speakers", []string{"A", "B"})
	SetSpanAttribute(ctx, "ignored", struct{}{})
	AddSpanEvent(ctx, "retry", attribute.Int(AttrAttempt, 2))
	SetSpanError(ctx, fmt.Errorf("upstream 503"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name != SpanSubmission {
		t.Errorf("unexpected span name %q", s.Name)
	}
	found := false
	for _, kv := range s.Attributes {
		if string(kv.Key) == AttrPath && kv.Value.AsString() == "direct" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s attribute, got %v", AttrPath, s.Attributes)
	}
	if len(s.Events) != 2 {
		t.Errorf("expected retry event and error event, got %d", len(s.Events))
	}
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, fmt.Errorf("no span"))
	AddSpanEvent(ctx, "noop")
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected non-nil noop span")
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("transcribe", "1.2.3", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := res.Set().Value("service.name")
	if !ok || v.AsString() != "transcribe" {
		t.Errorf("expected service.name=transcribe, got %v", v)
	}
}

func TestInitTracerAndMeter(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	defer otel.SetTracerProvider(prevTP)
	defer otel.SetMeterProvider(prevMP)

	tp, err := InitTracer(context.Background(), DefaultTracerConfig("transcribe"))
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = tp.Shutdown(ctx)

	mp, err := InitMeter(context.Background(), DefaultMeterConfig("transcribe"))
	if err != nil {
		t.Fatalf("InitMeter: %v", err)
	}
	_ = mp.Shutdown(ctx)
}

func TestTelemetry_Disabled(t *testing.T) {
	tel, err := NewTelemetry("relay", "staging", TelemetryConfig{})
	if err != nil {
		t.Fatalf("NewTelemetry: %v", err)
	}
	if tel.Metrics() == nil {
		t.Fatal("expected instruments even with export disabled")
	}
	ctx := context.Background()
	if err := tel.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if tel.tp != nil || tel.mp != nil {
		t.Error("disabled telemetry must not install providers")
	}
	if h := tel.CheckHealth(ctx); h.Status != HealthStatusUp || h.Message != "export disabled" {
		t.Errorf("unexpected health %+v", h)
	}
	if err := tel.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestTelemetry_Config(t *testing.T) {
	tel, err := NewTelemetry("relay", "production", TelemetryConfig{
		Enabled:        true,
		Endpoint:       "collector:4318",
		SampleRate:     0.25,
		MetricInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewTelemetry: %v", err)
	}
	if tel.tracerCfg.Endpoint != "collector:4318" || tel.meterCfg.Endpoint != "collector:4318" {
		t.Errorf("endpoint not applied: %+v %+v", tel.tracerCfg, tel.meterCfg)
	}
	if tel.tracerCfg.SampleRate != 0.25 || tel.meterCfg.Interval != time.Minute {
		t.Errorf("sampling or interval not applied: %+v %+v", tel.tracerCfg, tel.meterCfg)
	}
	if tel.tracerCfg.Environment != "production" || tel.tracerCfg.Insecure {
		t.Errorf("unexpected tracer config %+v", tel.tracerCfg)
	}
	if h := tel.CheckHealth(context.Background()); h.Details["endpoint"] != "collector:4318" {
		t.Errorf("unexpected health %+v", h)
	}
}
