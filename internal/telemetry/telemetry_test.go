package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"

	"github.com/fyrsmithlabs/notaclin/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("notaclin.test"))
	assert.NotNil(t, tel.Meter("notaclin.test"))
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	tel, err := New(context.Background(), &Config{Enabled: true})
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
	assert.Contains(t, err.Error(), "endpoint is required")
}

func TestTelemetry_DegradeKeepsFirstReason(t *testing.T) {
	tel := &Telemetry{config: NewDefaultConfig()}
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())

	tel.degrade(errors.New("trace exporter: dial error"))
	tel.degrade(errors.New("metric exporter: other"))

	assert.Equal(t, HealthStatus{
		Healthy:  true,
		Degraded: true,
		Reason:   "trace exporter: dial error",
	}, tel.Health())
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.LoggerProvider()
		tel.SetLoggerProvider(noop.NewLoggerProvider())
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
	})
	assert.Equal(t, HealthStatus{Degraded: true}, tel.Health())
}

func TestTelemetry_Shutdown(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ShutdownTimeout = config.Duration(100 * time.Millisecond)
	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.Health().Healthy)
	assert.False(t, tel.Health().Degraded)
}

func TestTelemetry_ShutdownAfterCancel(t *testing.T) {
	tt := NewTestTelemetry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The manual reader and span recorder ignore ctx, the SDK providers do not.
	err := tt.Shutdown(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "shutdown ")
	}
	assert.False(t, tt.IsEnabled())
	assert.False(t, tt.Health().Healthy)
}

func TestTelemetry_LoggerProvider(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, tel.LoggerProvider())

	lp := noop.NewLoggerProvider()
	tel.SetLoggerProvider(lp)
	assert.Equal(t, lp, tel.LoggerProvider())
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry()
	assert.True(t, tt.IsEnabled())

	ctx, parent := tt.Tracer("notaclin.extraction").Start(context.Background(), "Analyzer.Analyze")
	parent.SetAttributes(
		attribute.Int("note.length", 42),
		attribute.String("note.id", "n-1"),
		attribute.Bool("semantic.enabled", false),
	)
	_, child := tt.Tracer("notaclin.extraction").Start(ctx, "rules.Vitals")
	child.End()
	parent.End()

	require.Len(t, tt.Recorder.Ended(), 2)
	require.NotNil(t, tt.Span("rules.Vitals"))
	assert.Nil(t, tt.Span("rules.Muscle"))
	assert.Equal(t, tt.Span("Analyzer.Analyze").SpanContext().SpanID(), tt.Span("rules.Vitals").Parent().SpanID())

	assert.EqualValues(t, 42, tt.SpanAttr(t, "Analyzer.Analyze", "note.length").AsInt64())
	assert.Equal(t, "n-1", tt.SpanAttr(t, "Analyzer.Analyze", "note.id").AsString())
	assert.False(t, tt.SpanAttr(t, "Analyzer.Analyze", "semantic.enabled").AsBool())
}

func TestTestTelemetry_Metrics(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	counter, err := tt.Meter("notaclin.extraction").Int64Counter("notaclin.analysis.extractions_total")
	require.NoError(t, err)
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("family", "vital")))
	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("family", "neuro")))

	assert.EqualValues(t, 5, tt.CounterTotal(t, "notaclin.analysis.extractions_total"))
	assert.NoError(t, tt.ForceFlush(ctx))
	assert.NoError(t, tt.Shutdown(ctx))
	assert.False(t, tt.IsEnabled())
}
