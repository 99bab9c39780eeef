package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer creates a test tracer with an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)

	oldProvider := otel.GetTracerProvider()

	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttributes(span tracetest.SpanStub) map[string]any {
	attrs := make(map[string]any, len(span.Attributes))
	for _, attr := range span.Attributes {
		attrs[string(attr.Key)] = attr.Value.AsInterface()
	}

	return attrs
}

// TestStepSpans verifies the span recorded for each step that takes the lock.
// Subtests share the exporter and reset it, so they run sequentially.
//
//nolint:paralleltest,tparallel // Test modifies global OTEL tracer provider
func TestStepSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	t.Run("accepted", func(t *testing.T) {
		exporter.Reset()

		ctrl := newJobController(t)

		_, err := ctrl.Do(t.Context(), "start")
		require.NoError(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, stepSpanName, spans[0].Name)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)

		attrs := spanAttributes(spans[0])
		assert.Equal(t, "job", attrs["machine"])
		assert.Equal(t, ctrl.ID().String(), attrs["controller_id"])
		assert.Equal(t, "start", attrs["action"])
		assert.Equal(t, "idle", attrs["from"])
		assert.Equal(t, "running", attrs["to"])
		assert.Equal(t, outcomeAccepted, attrs["outcome"])
		assert.NotEmpty(t, attrs["table_fingerprint"])
	})

	t.Run("illegal", func(t *testing.T) {
		exporter.Reset()

		ctrl := newJobController(t)

		_, err := ctrl.Do(t.Context(), "finish")
		require.NoError(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, outcomeIllegal, spanAttributes(spans[0])["outcome"])
		assert.NotContains(t, spanAttributes(spans[0]), "to")
	})

	t.Run("failed", func(t *testing.T) {
		exporter.Reset()

		ctrl := newJobController(t, WithOnTransition(Single(Sync(func(context.Context, *EventData) error {
			return errTest
		}))))

		_, err := ctrl.Do(t.Context(), "start")
		require.Error(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, outcomeFailed, spanAttributes(spans[0])["outcome"])
		assert.NotEmpty(t, spans[0].Events)
	})

	t.Run("busy steps record no span", func(t *testing.T) {
		exporter.Reset()

		release := make(chan struct{})

		ctrl := newJobController(t, WithOnTransition(Single(Async(func(context.Context, *EventData) error {
			<-release

			return nil
		}))))

		pending := ctrl.Step(t.Context(), "start")

		_, err := ctrl.Do(t.Context(), "start")
		require.NoError(t, err)

		close(release)

		_, err = pending.Await()
		require.NoError(t, err)

		assert.Len(t, exporter.GetSpans(), 1)
	})

	t.Run("trace context in logs", func(t *testing.T) {
		ctx, span := otel.Tracer("test").Start(t.Context(), "parent")
		defer span.End()

		traceID, spanID := extractTraceContext(ctx)
		assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
		assert.Equal(t, span.SpanContext().SpanID().String(), spanID)

		traceID, _ = extractTraceContext(context.Background())
		assert.Empty(t, traceID)
	})
}
