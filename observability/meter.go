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
)

// Operation status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global
// provider. The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg Config, service, version string) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: creating metric exporter: %w", err)
	}
	res, err := newResource(service, version, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("observability: creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the module meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metrics holds the transpiler instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	artifactTotal     metric.Int64Counter
	errorTotal        metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operationTotal, err := meter.Int64Counter("flowtorch.operation.total",
		metric.WithDescription("Pipeline operations by name and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.total counter: %w", err)
	}
	operationDuration, err := meter.Float64Histogram("flowtorch.operation.duration",
		metric.WithDescription("Duration of pipeline operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}
	artifactTotal, err := meter.Int64Counter("flowtorch.artifact.total",
		metric.WithDescription("Artifacts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating artifact.total counter: %w", err)
	}
	errorTotal, err := meter.Int64Counter("flowtorch.error.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}
	return &Metrics{
		operationTotal:    operationTotal,
		operationDuration: operationDuration,
		artifactTotal:     artifactTotal,
		errorTotal:        errorTotal,
	}, nil
}

// RecordOperation records one run of operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordArtifacts records composed and failed artifact counts.
func (m *Metrics) RecordArtifacts(ctx context.Context, composed, failed int) {
	if m == nil {
		return
	}
	if composed > 0 {
		m.artifactTotal.Add(ctx, int64(composed), metric.WithAttributes(attribute.String("status", StatusOK)))
	}
	if failed > 0 {
		m.artifactTotal.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("status", StatusError)))
	}
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
