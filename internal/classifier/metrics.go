package classifier

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// InstrumentationName is the name used for OTEL instrumentation.
	InstrumentationName = "github.com/studioph/StaticPatcher/internal/classifier"
)

// Metrics provides OpenTelemetry metrics for classification.
type Metrics struct {
	classificationsTotal metric.Int64Counter
	cacheHitsTotal       metric.Int64Counter
	unresolvedTotal      metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.classificationsTotal, err = meter.Int64Counter(
		"staticpatcher.classifier.classifications.total",
		metric.WithDescription("Records resolved without the cache, by category and strategy"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheHitsTotal, err = meter.Int64Counter(
		"staticpatcher.classifier.cache.hits.total",
		metric.WithDescription("Classifications answered from the per-classifier cache"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	m.unresolvedTotal, err = meter.Int64Counter(
		"staticpatcher.classifier.location.unresolved.total",
		metric.WithDescription("Containers whose location link was missing or did not resolve"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordClassification records a fresh resolution.
func (m *Metrics) RecordClassification(ctx context.Context, hierarchy string, res Resolution) {
	if m == nil {
		return
	}
	m.classificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hierarchy", hierarchy),
		attribute.String("category", res.Category.Name()),
		attribute.String("strategy", res.Strategy.String()),
	))
}

// RecordCacheHit records a cached answer.
func (m *Metrics) RecordCacheHit(ctx context.Context, hierarchy string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hierarchy", hierarchy),
	))
}

// RecordUnresolvedLink records a container that fell back to Unknown.
func (m *Metrics) RecordUnresolvedLink(ctx context.Context, hierarchy string) {
	if m == nil {
		return
	}
	m.unresolvedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hierarchy", hierarchy),
	))
}
