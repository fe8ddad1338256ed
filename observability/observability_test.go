package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/flowtorch/errors"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("expected endpoint %s, got %s", DefaultEndpoint, cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected sample rate 1.0, got %v", cfg.SampleRate)
	}
	if cfg.MetricInterval != DefaultMetricInterval {
		t.Errorf("expected interval %v, got %v", DefaultMetricInterval, cfg.MetricInterval)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"enabled", Config{Enabled: true, Endpoint: "otel:4318", SampleRate: 0.5}, false},
		{"rate too high", Config{SampleRate: 1.5}, true},
		{"no endpoint", Config{Enabled: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, "flowtorch", "dev")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_Enabled(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	cfg := Config{Enabled: true, Endpoint: "localhost:4318", Insecure: true}
	shutdown, err := Setup(context.Background(), cfg, "flowtorch", "dev")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// The exporter has nothing to flush; errors from an absent collector are fine.
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.5, "ParentBased"},
	}
	for _, tt := range tests {
		got := sampler(tt.rate).Description()
		if len(got) < len(tt.want) || got[:len(tt.want)] != tt.want {
			t.Errorf("sampler(%v) = %q, want prefix %q", tt.rate, got, tt.want)
		}
	}
}

func TestStartSpan_Attributes(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartSpan(context.Background(), SpanCompose, attribute.String(AttrTerminal, "end"))
	EndSpan(span, nil)

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != SpanCompose {
		t.Fatalf("expected one %s span, got %v", SpanCompose, spans)
	}
	found := false
	for _, kv := range spans[0].Attributes() {
		if kv.Key == AttrTerminal && kv.Value.AsString() == "end" {
			found = true
		}
	}
	if !found {
		t.Error("expected terminal attribute on span")
	}
}

func TestEndSpan_Error(t *testing.T) {
	rec := recordSpans(t)
	_, span := StartSpan(context.Background(), SpanFormat)
	EndSpan(span, fmt.Errorf("ruff exited"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status())
	}
	if len(s.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordOperation(ctx, SpanTranspile, StatusOK, 20*time.Millisecond)
	m.RecordOperation(ctx, SpanTranspile, StatusError, 5*time.Millisecond)
	m.RecordArtifacts(ctx, 2, 1)
	m.RecordError(ctx, "GRAPH_CYCLE", "transpiler")

	data := collect(t, reader)
	if got := sumOf(t, data["flowtorch.operation.total"], "status", StatusOK); got != 1 {
		t.Errorf("expected 1 ok operation, got %d", got)
	}
	if got := sumOf(t, data["flowtorch.artifact.total"], "status", StatusOK); got != 2 {
		t.Errorf("expected 2 composed artifacts, got %d", got)
	}
	if got := sumOf(t, data["flowtorch.artifact.total"], "status", StatusError); got != 1 {
		t.Errorf("expected 1 failed artifact, got %d", got)
	}
	if got := sumOf(t, data["flowtorch.error.total"], "code", "GRAPH_CYCLE"); got != 1 {
		t.Errorf("expected 1 GRAPH_CYCLE error, got %d", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordOperation(ctx, "x", StatusOK, time.Second)
	m.RecordArtifacts(ctx, 1, 1)
	m.RecordError(ctx, "x", "y")
}

func TestNewMetrics_Noop(t *testing.T) {
	if _, err := NewMetrics(noop.NewMeterProvider().Meter("test")); err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
}

func TestOperation_End(t *testing.T) {
	rec := recordSpans(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	_, ok := StartOperation(ctx, m, SpanPrefetch)
	ok.End(ctx, nil)
	_, failed := StartOperation(ctx, m, SpanTranspile, attribute.Int(AttrNodes, 3))
	failed.End(ctx, errors.GraphCycle([]string{"a", "b"}))

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("expected failed operation span to carry error status")
	}
	data := collect(t, reader)
	if got := sumOf(t, data["flowtorch.error.total"], "code", string(errors.ErrCodeGraphCycle)); got != 1 {
		t.Errorf("expected GRAPH_CYCLE counted once, got %d", got)
	}
	if got := sumOf(t, data["flowtorch.operation.total"], "operation", SpanPrefetch); got != 1 {
		t.Errorf("expected one prefetch operation, got %d", got)
	}
}

func TestOperation_NilMetrics(t *testing.T) {
	recordSpans(t)
	ctx, op := StartOperation(context.Background(), nil, SpanFormat)
	op.SetAttributes(attribute.Int(AttrArtifacts, 1))
	if op.Span() == nil {
		t.Fatal("expected span")
	}
	op.End(ctx, fmt.Errorf("boom"))
}

func TestServiceHealth_AddComponent(t *testing.T) {
	sh := NewServiceHealth("flowtorch", "1.0.0")
	sh.AddComponent(Health{Name: "registry", Status: HealthStatusUp})
	if sh.Status != HealthStatusUp {
		t.Errorf("expected up, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "formatter", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "storage", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "other", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Errorf("degraded must not override down, got %s", sh.Status)
	}
}

func TestCheck_PreservesOrder(t *testing.T) {
	checker := func(name string, status HealthStatus, delay time.Duration) HealthChecker {
		return HealthFunc(func(context.Context) Health {
			time.Sleep(delay)
			return Health{Name: name, Status: status}
		})
	}
	sh := Check(context.Background(), "flowtorch", "dev",
		checker("slow", HealthStatusUp, 30*time.Millisecond),
		checker("fast", HealthStatusDegraded, 0),
	)
	if len(sh.Components) != 2 || sh.Components[0].Name != "slow" || sh.Components[1].Name != "fast" {
		t.Errorf("unexpected components %+v", sh.Components)
	}
	if sh.Status != HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", sh.Status)
	}
}
