package extraction

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/notaclin/internal/extraction"

// Metrics holds analysis instrumentation.
type Metrics struct {
	meter       metric.Meter
	logger      *zap.Logger
	duration    metric.Float64Histogram
	extractions metric.Int64Counter
	errors      metric.Int64Counter
}

// NewMetrics creates metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return NewMetricsWithMeter(otel.Meter(instrumentationName), logger)
}

// NewMetricsWithMeter creates metrics on the given meter.
func NewMetricsWithMeter(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"notaclin.analysis.duration_seconds",
		metric.WithDescription("Duration of note analyses"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.extractions, err = m.meter.Int64Counter(
		"notaclin.analysis.extractions_total",
		metric.WithDescription("Total number of fields extracted, by field and family"),
		metric.WithUnit("{field}"),
	)
	if err != nil {
		m.logger.Warn("failed to create extractions counter", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"notaclin.analysis.errors_total",
		metric.WithDescription("Total number of failed analyses"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordAnalysis records one analysis outcome.
func (m *Metrics) RecordAnalysis(ctx context.Context, duration time.Duration, results []Result, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
	}

	if err != nil {
		if m.errors != nil {
			m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", errorReason(err))))
		}
		return
	}

	if m.extractions == nil {
		return
	}
	for _, r := range results {
		family := ""
		if spec, ok := Lookup(r.Field); ok {
			family = string(spec.Family)
		}
		m.extractions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("field", string(r.Field)),
			attribute.String("family", family),
		))
	}
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrSemanticMatch):
		return "semantic"
	default:
		return "internal"
	}
}
