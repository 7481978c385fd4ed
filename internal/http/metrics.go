package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/notaclin/internal/http"

// HTTPMetrics records request counts, latency and sizes per route. Note
// bodies are measured in bytes only.
type HTTPMetrics struct {
	requests  metric.Int64Counter
	latency   metric.Float64Histogram
	noteBytes metric.Int64Histogram
	inFlight  metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the instruments on the global meter provider.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	return newHTTPMetrics(otel.Meter(httpInstrumentationName), logger)
}

func newHTTPMetrics(meter metric.Meter, logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	var m HTTPMetrics
	var err, errs error

	m.requests, err = meter.Int64Counter("notaclin.http.requests_total",
		metric.WithDescription("HTTP requests by route, method and status class"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	m.latency, err = meter.Float64Histogram("notaclin.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by route"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5))
	errs = errors.Join(errs, err)

	m.noteBytes, err = meter.Int64Histogram("notaclin.http.request_size_bytes",
		metric.WithDescription("Size of analyze request bodies"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(256, 1024, 4096, 16384, 65536, 262144, 1048576))
	errs = errors.Join(errs, err)

	m.inFlight, err = meter.Int64UpDownCounter("notaclin.http.active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	if errs != nil {
		// The meter returns usable no-op instruments alongside errors.
		logger.Warn("some http instruments could not be created", zap.Error(errs))
	}
	return &m
}

// MetricsMiddleware records one data point per request. Routes are labeled
// by their registered pattern; 404s share the "unmatched" label.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()
			m.inFlight.Add(ctx, 1)
			defer m.inFlight.Add(ctx, -1)

			err := next(c)

			status := statusOf(c, err)
			route := routeLabel(c, status)
			attrs := metric.WithAttributes(
				attribute.String("route", route),
				attribute.String("method", c.Request().Method),
				attribute.String("status_class", statusClass(status)),
			)
			m.requests.Add(ctx, 1, attrs)
			m.latency.Record(ctx, time.Since(start).Seconds(), attrs)
			if route == "/api/v1/analyze" && c.Request().ContentLength > 0 {
				m.noteBytes.Record(ctx, c.Request().ContentLength)
			}
			return err
		}
	}
}

func routeLabel(c echo.Context, status int) string {
	if status == http.StatusNotFound || c.Path() == "" {
		return "unmatched"
	}
	return c.Path()
}

// statusOf returns the status the client will see. Errors are rendered
// after this middleware returns, so their code comes from the error.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// statusClass maps 204 to "2xx". The non-standard 499 is kept apart from
// other client errors.
func statusClass(code int) string {
	if code == 499 {
		return "499"
	}
	return strconv.Itoa(code/100) + "xx"
}
