package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/amp-fsm/logger"
	"github.com/google/uuid"
)

// Logger provides logging hooks for step execution.
type Logger interface {
	StepRequested(ctx context.Context, machine, action, from string)
	StepRejected(ctx context.Context, machine, action, reason string)
	TransitionExecuted(ctx context.Context, machine string, ev *EventData)
	HookFired(ctx context.Context, machine, state, kind string, listener uuid.UUID)
	StepFailed(ctx context.Context, machine, action string, err error)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger logs through logger.Get, so the subsystem and values
// attached to the step's context are included.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger logs through l.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if l.logger != nil {
		return l.logger
	}

	return logger.Get(ctx)
}

func (l *DefaultLogger) StepRequested(ctx context.Context, machine, action, from string) {
	l.get(ctx).DebugContext(ctx, "Step requested",
		"machine", machine,
		"action", action,
		"from", from,
	)
}

func (l *DefaultLogger) StepRejected(ctx context.Context, machine, action, reason string) {
	l.get(ctx).DebugContext(ctx, "Step rejected",
		"machine", machine,
		"action", action,
		"reason", reason,
	)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, machine string, ev *EventData) {
	traceID, spanID := extractTraceContext(ctx)

	fields := []any{
		"machine", machine,
		"action", ev.Action,
		"from", ev.Before,
		"to", ev.On,
	}

	if traceID != "" {
		fields = append(fields, "trace_id", traceID, "span_id", spanID)
	}

	l.get(ctx).InfoContext(ctx, "Transition executed", fields...)
}

func (l *DefaultLogger) HookFired(ctx context.Context, machine, state, kind string, listener uuid.UUID) {
	l.get(ctx).DebugContext(ctx, "Hook fired",
		"machine", machine,
		"state", state,
		"kind", kind,
		"listener", listener.String(),
	)
}

func (l *DefaultLogger) StepFailed(ctx context.Context, machine, action string, err error) {
	l.get(ctx).ErrorContext(ctx, "Step failed",
		"machine", machine,
		"action", action,
		"error", err,
	)
}
