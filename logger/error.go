package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError attaches slog key-value pairs to err. When the error is later
// logged through a handler installed by ConfigureLoggingWithOptions, the pairs
// are emitted as top-level attributes. Returns nil for a nil err.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	record := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	record.Add(args...)

	attrs := make([]slog.Attr, 0, record.NumAttrs())

	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)

		return true
	})

	return &annotatedError{err: err, attrs: attrs}
}

type annotatedError struct {
	err   error
	attrs []slog.Attr
}

func (a *annotatedError) Error() string {
	return a.err.Error()
}

func (a *annotatedError) Unwrap() error {
	return a.err
}

// annotatedErrorHandler lifts attributes out of annotated errors.
type annotatedErrorHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*annotatedErrorHandler)(nil)

func (h *annotatedErrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *annotatedErrorHandler) Handle(ctx context.Context, record slog.Record) error {
	var (
		base  []slog.Attr
		extra []slog.Attr
	)

	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			var annotated *annotatedError
			if errors.As(err, &annotated) {
				extra = append(extra, annotated.attrs...)
			}
		}

		base = append(base, attr)

		return true
	})

	if len(extra) == 0 {
		return h.inner.Handle(ctx, record)
	}

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	out.AddAttrs(base...)
	out.AddAttrs(extra...)

	return h.inner.Handle(ctx, out)
}

func (h *annotatedErrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotatedErrorHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *annotatedErrorHandler) WithGroup(name string) slog.Handler {
	return &annotatedErrorHandler{inner: h.inner.WithGroup(name)}
}
