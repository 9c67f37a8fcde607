package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nais/disquick/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const traceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func TestTraceParentRoundTrip(t *testing.T) {
	ctx := telemetry.WithTraceParent(context.Background(), traceParent)
	assert.Equal(t, traceParent, telemetry.TraceParentHeader(ctx))
}

func TestTraceParentEmpty(t *testing.T) {
	assert.Empty(t, telemetry.TraceParentHeader(context.Background()))
	assert.Equal(t, context.Background(), telemetry.WithTraceParent(context.Background(), ""))
}

func TestStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := telemetry.StartStage(context.Background(), "activate")
	assert.NotEmpty(t, telemetry.TraceParentHeader(ctx))
	telemetry.EndSpan(span, errors.New("activation failed"))

	ended := recorder.Ended()
	if assert.Len(t, ended, 1) {
		assert.Equal(t, "activate", ended[0].Name())
		assert.Equal(t, "activation failed", ended[0].Status().Description)
	}
}
