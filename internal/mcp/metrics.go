package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notaclin/internal/extraction"
)

const instrumentationName = "github.com/fyrsmithlabs/notaclin/internal/mcp"

// errInvalidArgument marks tool calls rejected before any work is done.
var errInvalidArgument = errors.New("invalid argument")

// Metrics counts tool calls, their latency and failures per tool.
type Metrics struct {
	calls    metric.Int64Counter
	latency  metric.Float64Histogram
	failures metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	var m Metrics
	var err, errs error

	m.calls, err = meter.Int64Counter("notaclin.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool calls by tool"),
		metric.WithUnit("{invocation}"))
	errs = errors.Join(errs, err)

	m.latency, err = meter.Float64Histogram("notaclin.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool latency by tool"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5))
	errs = errors.Join(errs, err)

	m.failures, err = meter.Int64Counter("notaclin.mcp.tool.errors_total",
		metric.WithDescription("Failed MCP tool calls by tool and reason"),
		metric.WithUnit("{error}"))
	errs = errors.Join(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("notaclin.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	if errs != nil {
		logger.Warn("some mcp instruments could not be created", zap.Error(errs))
	}
	return &m
}

// measured wraps a tool handler so each call is counted and timed under
// tool.
func measured[In, Out any](m *Metrics, tool string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		attrs := metric.WithAttributes(attribute.String("tool", tool))
		m.inFlight.Add(ctx, 1, attrs)
		start := time.Now()

		res, out, err := h(ctx, req, in)

		m.inFlight.Add(ctx, -1, attrs)
		m.calls.Add(ctx, 1, attrs)
		m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
		if err != nil {
			m.failures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", tool),
				attribute.String("reason", failureReason(err))))
		}
		return res, out, err
	}
}

// failureReason maps err to a low-cardinality label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errInvalidArgument):
		return "validation_error"
	case errors.Is(err, extraction.ErrSemanticMatch):
		return "semantic_error"
	default:
		return "internal_error"
	}
}
