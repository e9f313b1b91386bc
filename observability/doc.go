// Package observability wires OpenTelemetry tracing and metrics for
// httppipe clients.
//
// InitTracer and InitMeter install OTLP/HTTP exporters as the global
// providers; clients then record spans and ClientMetrics through the global
// (or an explicitly supplied) provider:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
package observability
