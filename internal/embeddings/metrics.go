package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const embeddingsInstrumentationName = "github.com/fyrsmithlabs/notaclin/internal/embeddings"

const (
	opDocuments = "embed_documents"
	opQuery     = "embed_query"
)

// Metrics records embedding latency, batch sizes and failures per model.
type Metrics struct {
	latency  metric.Float64Histogram
	batch    metric.Int64Histogram
	failures metric.Int64Counter
	lookups  metric.Int64Counter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(embeddingsInstrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	var m Metrics
	var err, errs error

	m.latency, err = meter.Float64Histogram("notaclin.embedding.generation_duration_seconds",
		metric.WithDescription("Embedding latency by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.002, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5))
	errs = errors.Join(errs, err)

	m.batch, err = meter.Int64Histogram("notaclin.embedding.batch_size",
		metric.WithDescription("Texts per embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 4, 8, 16, 32, 64))
	errs = errors.Join(errs, err)

	m.failures, err = meter.Int64Counter("notaclin.embedding.errors_total",
		metric.WithDescription("Failed embedding calls by model and operation"),
		metric.WithUnit("{error}"))
	errs = errors.Join(errs, err)

	m.lookups, err = meter.Int64Counter("notaclin.embedding.cache_lookups_total",
		metric.WithDescription("Query cache lookups by result (hit, miss, shared)"),
		metric.WithUnit("{lookup}"))
	errs = errors.Join(errs, err)

	if errs != nil {
		logger.Warn("some embedding instruments could not be created", zap.Error(errs))
	}
	return &m
}

// observe records one call of op over n texts that started at start.
func (m *Metrics) observe(ctx context.Context, model, op string, n int, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model), attribute.String("operation", op))
	m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
	if n > 0 {
		m.batch.Record(ctx, int64(n), attrs)
	}
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) cacheLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// instrumented measures every call to the wrapped provider. Empty input is
// rejected here so backends never see it.
type instrumented struct {
	Provider
	model   string
	metrics *Metrics
}

func instrument(p Provider, model string, m *Metrics) Provider {
	return &instrumented{Provider: p, model: model, metrics: m}
}

func (p *instrumented) EmbedDocuments(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	start := time.Now()
	defer func() { p.metrics.observe(ctx, p.model, opDocuments, len(texts), start, err) }()
	if err = checkTexts(texts); err != nil {
		return nil, err
	}
	return p.Provider.EmbedDocuments(ctx, texts)
}

func (p *instrumented) EmbedQuery(ctx context.Context, text string) (vector []float32, err error) {
	start := time.Now()
	defer func() { p.metrics.observe(ctx, p.model, opQuery, 1, start, err) }()
	if err = checkText(text); err != nil {
		return nil, err
	}
	return p.Provider.EmbedQuery(ctx, text)
}
