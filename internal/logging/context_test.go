package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_RunID(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-7")

	fields := ContextFields(ctx)
	if assert.Len(t, fields, 1) {
		assert.Equal(t, "run.id", fields[0].Key)
		assert.Equal(t, "run-7", fields[0].String)
	}
}

func TestWithRunID_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithRunID(ctx, ""))
	assert.Equal(t, "", RunIDFromContext(ctx))
}

func TestContextFields_TraceCorrelation(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	got := map[string]string{}
	for _, f := range ContextFields(ctx) {
		got[f.Key] = f.String
	}
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", got["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", got["span_id"])
}
