// Package telemetry sets up OpenTelemetry tracing and metrics for memberqa.
//
// Traces and OTEL metrics are exported over OTLP (gRPC or HTTP/protobuf) to
// a collector. Prometheus metrics are separate and served on /metrics by the
// HTTP package.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version), logger)
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("memberqa/retrieval")
//	ctx, span := tracer.Start(ctx, "retrieval.Retrieve")
//	defer span.End()
//
// Exporter failures never stop the service: New returns a degraded instance
// whose Tracer and Meter fall back to the global no-op providers.
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
