// Package observability wires OpenTelemetry tracing and metrics for the
// transpiler and aggregates component health for the HTTP surface.
//
// Tracing and metrics:
//
//	tp, err := observability.InitTracer(ctx, cfg, "flowtorch", version)
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	ctx, op := observability.StartOperation(ctx, metrics, observability.SpanTranspile)
//	defer op.End(ctx, err)
//
// Health:
//
//	health := observability.Check(ctx, "flowtorch", version, formatterCheck, storageCheck)
package observability
