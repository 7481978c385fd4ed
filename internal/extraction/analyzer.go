package extraction

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/normalize"
)

var tracer = otel.Tracer(instrumentationName)

// Matcher proposes candidates from the raw note text.
type Matcher interface {
	Match(ctx context.Context, raw string) ([]Candidate, error)
}

// Analyzer runs the pattern rules and the semantic matcher over one note
// and aggregates their candidates.
//
// An Analyzer holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	rules    []Rule
	semantic Matcher
	logger   *zap.Logger
	metrics  *Metrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(a *Analyzer) {
		a.rules = rules
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics enables metrics recording.
func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// NewAnalyzer creates an Analyzer. A nil semantic matcher disables the
// neurological findings.
func NewAnalyzer(semantic Matcher, opts ...Option) *Analyzer {
	a := &Analyzer{
		rules:    DefaultRules(),
		semantic: semantic,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts the observations found in text. Pattern rules run over the
// normalized text in order, then the semantic matcher runs over the trimmed
// raw text. A semantic failure fails the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "Analyzer.Analyze")
	defer span.End()

	start := time.Now()
	raw := strings.TrimSpace(text)
	normalized := normalize.Normalize(raw)

	rs := NewResultSet()
	for _, rule := range a.rules {
		if c, ok := rule.Evaluate(normalized); ok {
			rs.Submit(c)
		}
	}

	if a.semantic != nil && raw != "" {
		candidates, err := a.semantic.Match(ctx, raw)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			a.metrics.RecordAnalysis(ctx, time.Since(start), nil, err)
			return nil, err
		}
		for _, c := range candidates {
			rs.Submit(c)
		}
	}

	results := rs.Results()
	a.metrics.RecordAnalysis(ctx, time.Since(start), results, nil)

	span.SetAttributes(
		attribute.Int("note.length", len(raw)),
		attribute.Int("results", len(results)),
	)
	span.SetStatus(codes.Ok, "success")

	a.logger.Debug("note analyzed",
		zap.Int("length", len(raw)),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return &Analysis{Results: results}, nil
}

var _ NoteAnalyzer = (*Analyzer)(nil)
