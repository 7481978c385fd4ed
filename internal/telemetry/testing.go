package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry is an enabled Telemetry backed by an in-memory span
// recorder and a manual metric reader. It does not touch the otel globals.
type TestTelemetry struct {
	*Telemetry

	Recorder *tracetest.SpanRecorder
	Reader   *sdkmetric.ManualReader
}

// NewTestTelemetry returns telemetry that records instead of exporting.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	res := newResource(cfg)

	recorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	tel := &Telemetry{
		config: cfg,
		tp:     newTracerProvider(res, cfg.SampleRate, trace.WithSpanProcessor(recorder)),
		mp:     newMeterProvider(res, reader),
	}

	return &TestTelemetry{Telemetry: tel, Recorder: recorder, Reader: reader}
}

// Span returns the first ended span called name, or nil.
func (tt *TestTelemetry) Span(name string) trace.ReadOnlySpan {
	for _, s := range tt.Recorder.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// SpanAttr returns the value of attribute key on span name.
func (tt *TestTelemetry) SpanAttr(tb testing.TB, name, key string) attribute.Value {
	tb.Helper()
	s := tt.Span(name)
	if s == nil {
		tb.Fatalf("span %q not recorded", name)
	}
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	tb.Fatalf("span %q has no attribute %q", name, key)
	return attribute.Value{}
}

// Collect gathers the current metric state from the manual reader.
func (tt *TestTelemetry) Collect(tb testing.TB) metricdata.ResourceMetrics {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := tt.Reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collect metrics: %v", err)
	}
	return rm
}

// CounterTotal sums every data point of the int64 counter called name.
// It returns -1 when no such counter was recorded.
func (tt *TestTelemetry) CounterTotal(tb testing.TB, name string) int64 {
	tb.Helper()
	rm := tt.Collect(tb)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				tb.Fatalf("metric %q is %T, not an int64 sum", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return -1
}
