package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestNew(t *testing.T) {
	t.Run("disabled hands out global providers", func(t *testing.T) {
		tel, err := New(context.Background(), NewDefaultConfig())
		require.NoError(t, err)

		assert.NotNil(t, tel.Tracer("staticpatcher"))
		assert.NotNil(t, tel.Meter("staticpatcher"))
		assert.Nil(t, tel.LoggerProvider())
		assert.False(t, tel.IsEnabled())
		assert.Equal(t, HealthStatus{Healthy: true, Reasons: []string{}}, normalize(tel.Health()))
	})

	t.Run("invalid config", func(t *testing.T) {
		tel, err := New(context.Background(), &Config{Enabled: true})
		require.Error(t, err)
		assert.Nil(t, tel)
		assert.Contains(t, err.Error(), "invalid telemetry config")
	})
}

func normalize(h HealthStatus) HealthStatus {
	if h.Reasons == nil {
		h.Reasons = []string{}
	}
	return h
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("staticpatcher")
		_ = tel.Meter("staticpatcher")
		_ = tel.LoggerProvider()
		tel.SetLoggerProvider(nil)
		assert.False(t, tel.IsEnabled())
		assert.NoError(t, tel.Shutdown(context.Background()))
		assert.NoError(t, tel.ForceFlush(context.Background()))
	})

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTelemetry_Shutdown(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"config timeout", func() (context.Context, context.CancelFunc) {
			return context.WithCancel(context.Background())
		}},
		{"caller deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 50*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Shutdown.Timeout = 100 * time.Millisecond
			tel, err := New(context.Background(), cfg)
			require.NoError(t, err)

			ctx, cancel := tt.ctx()
			defer cancel()
			require.NoError(t, tel.ForceFlush(ctx))
			require.NoError(t, tel.Shutdown(ctx))
			assert.False(t, tel.Health().Healthy)
		})
	}
}

func TestTelemetry_ShutdownWithProviders(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.Tracer("staticpatcher").Start(ctx, "patcher.plan")
	span.End()
	counter, err := tt.Meter("staticpatcher").Int64Counter("staticpatcher.test.total")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	require.True(t, tt.IsEnabled())
	require.NoError(t, tt.ForceFlush(ctx))
	require.NoError(t, tt.Shutdown(ctx))
	assert.False(t, tt.IsEnabled())
}

func TestTelemetry_Degrade(t *testing.T) {
	tel := &Telemetry{cfg: NewDefaultConfig()}
	tel.degrade("tracer provider", errors.New("boom"))
	tel.degrade("meter provider", errors.New("refused"))

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.True(t, health.Degraded)
	assert.Equal(t, []string{"tracer provider failed: boom", "meter provider failed: refused"}, health.Reasons)

	// snapshots are copies
	health.Reasons[0] = "changed"
	assert.Equal(t, "tracer provider failed: boom", tel.Health().Reasons[0])
}

func TestTestTelemetry_Spans(t *testing.T) {
	tt := NewTestTelemetry()
	tracer := tt.Tracer("staticpatcher")

	_, span := tracer.Start(context.Background(), "classifier.explain")
	span.SetAttributes(
		attribute.String("category", "Goblet"),
		attribute.Int64("depth", 2),
		attribute.Float64("ratio", 0.5),
		attribute.Bool("cached", true),
	)
	span.End()
	_, span = tracer.Start(context.Background(), "patcher.plan")
	span.End()

	assert.Len(t, tt.Spans(), 2)
	assert.Nil(t, tt.Span("missing"))
	require.NotNil(t, tt.Span("patcher.plan"))
	assert.Equal(t, "patcher.plan", tt.Span("patcher.plan").Name())

	tt.AssertSpanExists(t, "classifier.explain")
	tt.AssertSpanAttribute(t, "classifier.explain", "category", "Goblet")
	tt.AssertSpanAttribute(t, "classifier.explain", "depth", int64(2))
	tt.AssertSpanAttribute(t, "classifier.explain", "ratio", 0.5)
	tt.AssertSpanAttribute(t, "classifier.explain", "cached", true)

	tt.Reset()
	assert.Empty(t, tt.Spans())
}

func TestTestTelemetry_Int64Sum(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	counter, err := tt.Meter("test").Int64Counter("staticpatcher.classifications")
	require.NoError(t, err)

	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("strategy", "keyword")))
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", "name")))
	counter.Add(ctx, 4, metric.WithAttributes(attribute.String("strategy", "keyword")))

	tests := []struct {
		name  string
		attrs []attribute.KeyValue
		want  int64
	}{
		{"all points", nil, 7},
		{"filtered", []attribute.KeyValue{attribute.String("strategy", "keyword")}, 6},
		{"no match", []attribute.KeyValue{attribute.String("strategy", "membership")}, 0},
		{"wrong type", []attribute.KeyValue{attribute.Int64("strategy", 1)}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tt.Int64Sum(t, "staticpatcher.classifications", tc.attrs...))
		})
	}

	assert.Equal(t, int64(0), tt.Int64Sum(t, "missing.counter"))
	assert.NotEmpty(t, tt.Collect(t).ScopeMetrics)
}
