// Package observability wires OpenTelemetry tracing and metrics for the
// transcription client and relay.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("transcribe"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanSubmission)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("transcribe"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewTranscriptionMetrics(observability.Meter("transcribe"))
//	metrics.RecordSubmission(ctx, "direct", "succeeded", elapsed)
//
// Without InitTracer/InitMeter the global no-op providers are used, so
// instrumented code runs unchanged in tests.
//
// Health:
//
//	health := observability.NewServiceHealth("relay", version.Version)
//	health.AddComponent(checker.CheckHealth(ctx))
package observability
