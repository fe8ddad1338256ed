package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flowtorch/errors"
)

// Operation tracks one traced and measured pipeline step.
type Operation struct {
	name    string
	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartOperation starts a span named name. metrics may be nil.
func StartOperation(ctx context.Context, metrics *Metrics, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name, attrs...)
	return ctx, &Operation{name: name, start: time.Now(), span: span, metrics: metrics}
}

// Span returns the operation span.
func (o *Operation) Span() trace.Span { return o.span }

// SetAttributes adds attributes to the operation span.
func (o *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	o.span.SetAttributes(attrs...)
}

// End finishes the operation. A non-nil err marks the span failed and is
// counted under its AppError code.
func (o *Operation) End(ctx context.Context, err error) time.Duration {
	d := time.Since(o.start)
	status := StatusOK
	if err != nil {
		status = StatusError
		code := errors.Wrap(err).Code
		o.span.SetAttributes(attribute.String(AttrErrorCode, string(code)))
		o.metrics.RecordError(ctx, string(code), o.name)
	}
	EndSpan(o.span, err)
	o.metrics.RecordOperation(ctx, o.name, status, d)
	return d
}
