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
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the OTEL providers of one staticpatcher process.
//
// Exporter failures never fail a run. Instead the instance is marked degraded
// and callers fall back to the global providers, which are no-ops unless
// something else installed them.
type Telemetry struct {
	cfg *Config

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
	lp log.LoggerProvider

	mu       sync.Mutex
	closed   bool
	failures []string
}

// New validates cfg and builds the configured providers. A disabled config
// yields an instance that hands out global providers.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	t := &Telemetry{cfg: cfg}
	if !cfg.Enabled {
		return t, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		t.degrade("resource", err)
		return t, nil
	}

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		t.degrade("tracer provider", err)
	} else {
		t.tp = tp
		otel.SetTracerProvider(tp)
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		t.degrade("meter provider", err)
	} else if mp != nil {
		t.mp = mp
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return t, nil
}

// Tracer returns a tracer for the instrumentation scope name.
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if t == nil || t.tp == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tp.Tracer(name, opts...)
}

// Meter returns a meter for the instrumentation scope name.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.mp == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.mp.Meter(name, opts...)
}

// LoggerProvider returns the provider for the zap bridge, or nil.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil {
		return nil
	}
	return t.lp
}

// SetLoggerProvider installs the provider returned by LoggerProvider.
func (t *Telemetry) SetLoggerProvider(lp log.LoggerProvider) {
	if t != nil {
		t.lp = lp
	}
}

type sdkProvider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// each applies fn to every live SDK provider and joins the errors, each
// prefixed with the provider's role.
func (t *Telemetry) each(op string, fn func(sdkProvider) error) error {
	var errs []error
	apply := func(role string, p sdkProvider) {
		if err := fn(p); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", role, op, err))
		}
	}
	if t.tp != nil {
		apply("tracer provider", t.tp)
	}
	if t.mp != nil {
		apply("meter provider", t.mp)
	}
	return errors.Join(errs...)
}

// Shutdown flushes and stops the providers. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && t.cfg != nil && t.cfg.Shutdown.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Shutdown.Timeout)
		defer cancel()
	}

	err := t.each("shutdown", func(p sdkProvider) error { return p.Shutdown(ctx) })

	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return err
}

// ForceFlush exports everything buffered so far.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.each("flush", func(p sdkProvider) error { return p.ForceFlush(ctx) })
}

// HealthStatus is a snapshot of telemetry health.
type HealthStatus struct {
	// Healthy is false once Shutdown ran.
	Healthy bool
	// Degraded is set when any provider could not be built.
	Degraded bool
	// Reasons lists the construction failures, oldest first.
	Reasons []string
}

// Health reports the current status. A nil instance is unhealthy and degraded.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{Degraded: true}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthStatus{
		Healthy:  !t.closed,
		Degraded: len(t.failures) > 0,
		Reasons:  append([]string(nil), t.failures...),
	}
}

// IsEnabled reports whether telemetry is configured on and not shut down.
func (t *Telemetry) IsEnabled() bool {
	if t == nil || t.cfg == nil {
		return false
	}
	return t.cfg.Enabled && t.Health().Healthy
}

func (t *Telemetry) degrade(component string, err error) {
	t.mu.Lock()
	t.failures = append(t.failures, fmt.Sprintf("%s failed: %v", component, err))
	t.mu.Unlock()
}
