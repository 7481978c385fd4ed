package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry owns the process tracer and meter providers. An exporter that
// cannot be built leaves it degraded rather than failing startup, so notes
// are analyzed even with the collector down.
type Telemetry struct {
	config *Config

	tp *trace.TracerProvider
	mp *sdkmetric.MeterProvider
	lp log.LoggerProvider

	mu      sync.Mutex
	stopped bool
	reason  string
}

// HealthStatus reports whether telemetry is exporting.
type HealthStatus struct {
	Healthy  bool
	Degraded bool
	// Reason is the first failure that degraded telemetry.
	Reason string
}

// New validates cfg and, when enabled, builds the OTLP providers and
// installs them as the otel globals with W3C trace context propagation.
// Disabled telemetry hands out whatever the globals provide.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{config: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	tp, mp, err := exportingProviders(ctx, cfg, newResource(cfg))
	if err != nil {
		t.degrade(err)
	}
	t.tp, t.mp = tp, mp

	if tp != nil {
		otel.SetTracerProvider(tp)
	}
	if mp != nil {
		otel.SetMeterProvider(mp)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer for the instrumentation scope name.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tp == nil {
		return otel.Tracer(name, opts...)
	}
	return t.tp.Tracer(name, opts...)
}

// Meter returns a meter for the instrumentation scope name.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.mp == nil {
		return otel.Meter(name, opts...)
	}
	return t.mp.Meter(name, opts...)
}

// LoggerProvider returns the provider for the zap bridge, nil until set.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil {
		return nil
	}
	return t.lp
}

func (t *Telemetry) SetLoggerProvider(lp log.LoggerProvider) {
	if t != nil {
		t.lp = lp
	}
}

// sdkProvider is what the trace and metric SDK providers have in common.
type sdkProvider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// each applies fn to every running provider and joins the failures.
func (t *Telemetry) each(verb string, fn func(sdkProvider) error) error {
	var errs error
	if t.tp != nil {
		if err := fn(t.tp); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s tracer provider: %w", verb, err))
		}
	}
	if t.mp != nil {
		if err := fn(t.mp); err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s meter provider: %w", verb, err))
		}
	}
	return errs
}

// Shutdown flushes and stops the providers. The configured shutdown timeout
// bounds it when ctx has no deadline. Health reports unhealthy afterwards.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.config != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTimeout.Duration())
		defer cancel()
	}

	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()

	return t.each("shutdown", func(p sdkProvider) error {
		return p.Shutdown(ctx)
	})
}

// ForceFlush exports everything buffered so far.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.each("flush", func(p sdkProvider) error {
		return p.ForceFlush(ctx)
	})
}

// Health returns the current status. A nil Telemetry is degraded.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthStatus{
		Healthy:  !t.stopped,
		Degraded: t.reason != "",
		Reason:   t.reason,
	}
}

// IsEnabled reports whether telemetry is on and not yet shut down.
func (t *Telemetry) IsEnabled() bool {
	if t == nil || t.config == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.Enabled && !t.stopped
}

// degrade records err as the degradation reason unless one is already set.
func (t *Telemetry) degrade(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reason == "" {
		t.reason = err.Error()
	}
}
