package telemetry

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc/credentials"
)

const serviceNamespace = "notaclin"

// newResource describes the running binary. It is built standalone because
// resource.Default carries a different semconv schema URL.
func newResource(cfg *Config) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNamespace(serviceNamespace),
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)
}

// tlsConfig returns the client TLS config for a secure collector, or nil
// when the exporter defaults apply.
func tlsConfig(cfg *Config) *tls.Config {
	if cfg.Insecure || !cfg.TLSSkipVerify {
		return nil
	}
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for internal CAs
}

func newSpanExporter(ctx context.Context, cfg *Config) (trace.SpanExporter, error) {
	tc := tlsConfig(cfg)

	if cfg.Protocol == ProtocolHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(stripScheme(cfg.Endpoint))}
		switch {
		case cfg.Insecure:
			opts = append(opts, otlptracehttp.WithInsecure())
		case tc != nil:
			opts = append(opts, otlptracehttp.WithTLSClientConfig(tc))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	switch {
	case cfg.Insecure:
		opts = append(opts, otlptracegrpc.WithInsecure())
	case tc != nil:
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tc)))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	tc := tlsConfig(cfg)

	// Cumulative temporality keeps Prometheus-style backends happy and
	// overrides OTEL_EXPORTER_OTLP_METRICS_TEMPORALITY_PREFERENCE.
	cumulative := func(sdkmetric.InstrumentKind) metricdata.Temporality {
		return metricdata.CumulativeTemporality
	}

	if cfg.Protocol == ProtocolHTTP {
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(stripScheme(cfg.Endpoint)),
			otlpmetrichttp.WithTemporalitySelector(cumulative),
		}
		switch {
		case cfg.Insecure:
			opts = append(opts, otlpmetrichttp.WithInsecure())
		case tc != nil:
			opts = append(opts, otlpmetrichttp.WithTLSClientConfig(tc))
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithTemporalitySelector(cumulative),
	}
	switch {
	case cfg.Insecure:
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	case tc != nil:
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(tc)))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

// samplerFor maps a keep fraction to a parent-based sampler.
func samplerFor(rate float64) trace.Sampler {
	switch {
	case rate >= 1:
		return trace.ParentBased(trace.AlwaysSample())
	case rate <= 0:
		return trace.ParentBased(trace.NeverSample())
	default:
		return trace.ParentBased(trace.TraceIDRatioBased(rate))
	}
}

// newTracerProvider wires res and the sampler to extra options, which carry
// the span processor (batcher in production, recorder in tests).
func newTracerProvider(res *resource.Resource, rate float64, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	return trace.NewTracerProvider(append([]trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(samplerFor(rate)),
	}, opts...)...)
}

func newMeterProvider(res *resource.Resource, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
}

// exportingProviders builds the OTLP-backed tracer and meter providers. The
// meter provider is nil when metrics export is off.
func exportingProviders(ctx context.Context, cfg *Config, res *resource.Resource) (*trace.TracerProvider, *sdkmetric.MeterProvider, error) {
	spans, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := newTracerProvider(res, cfg.SampleRate, trace.WithBatcher(spans))

	if !cfg.MetricsEnabled {
		return tp, nil, nil
	}
	metrics, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return tp, nil, fmt.Errorf("metric exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(metrics, sdkmetric.WithInterval(cfg.MetricsInterval.Duration()))
	return tp, newMeterProvider(res, reader), nil
}
