package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/amp-fsm/envconfig"
	"github.com/amp-labs/amp-fsm/lazy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName   = "statemachine"
	stepSpanName = "statemachine.step"
)

type spanConfig struct {
	Debug bool `env:"STATEMACHINE_DEBUG_SPANS" envDefault:"false"`
}

var debugSpans = lazy.New(func() bool { //nolint:gochecknoglobals
	cfg, err := envconfig.Parse[spanConfig]()
	if err != nil {
		slog.Warn("Invalid statemachine span configuration", "error", err)

		return false
	}

	return cfg.Debug
})

// startStepSpan creates the span covering one step while it holds the lock.
// Uses the global tracer initialized by github.com/amp-labs/amp-fsm/telemetry.
// The caller is responsible for ending it through endStepSpan.
//
//nolint:spancheck // Span lifecycle managed by caller
func startStepSpan(ctx context.Context, ctrl *Controller, action string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, stepSpanName)
	span.SetAttributes(
		attribute.String("machine", ctrl.name),
		attribute.String("controller_id", ctrl.id.String()),
		attribute.String("action", action),
		attribute.String("from", ctrl.table.State()),
	)

	if ctrl.fingerprint != "" {
		span.SetAttributes(attribute.String("table_fingerprint", ctrl.fingerprint))
	}

	logSpanDebug(ctx, "started", span)

	return ctx, span
}

func endStepSpan(ctx context.Context, span trace.Span, outcome string, ev *EventData, err error) {
	span.SetAttributes(attribute.String("outcome", outcome))

	if ev != nil {
		span.SetAttributes(attribute.String("to", ev.On))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, outcome)
	}

	logSpanDebug(ctx, "ended", span)
	span.End()
}

// logSpanDebug logs span start and end when STATEMACHINE_DEBUG_SPANS is set.
func logSpanDebug(ctx context.Context, phase string, span trace.Span) {
	if !debugSpans.Get() {
		return
	}

	spanCtx := span.SpanContext()
	slog.InfoContext(ctx, "OTEL Span "+phase,
		"span_name", stepSpanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

// extractTraceContext extracts trace ID and span ID from context for logging.
func extractTraceContext(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()

		return spanCtx.TraceID().String(), spanCtx.SpanID().String()
	}

	return "", ""
}
