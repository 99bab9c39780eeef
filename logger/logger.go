// Package logger configures log/slog for the process and hands out loggers
// that carry context-scoped attributes (subsystem, muting, key-value pairs).
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/amp-labs/amp-fsm/envconfig"
	"github.com/amp-labs/amp-fsm/lazy"
)

// Default subsystem name, set by ConfigureLogging.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes changes to the process-wide default logger.
var configMutex sync.Mutex //nolint:gochecknoglobals

type contextKey string

// ErrInvalidLogOutput is returned when LOG_OUTPUT names an unknown destination.
var ErrInvalidLogOutput = errors.New("invalid log output")

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer
}

// Option mutates Options before they are applied.
type Option func(*Options)

// WithOutput overrides the output destination.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// Config is the environment-driven part of the logging setup.
type Config struct {
	JSON        bool       `env:"LOG_JSON"         envDefault:"false"`
	Level       slog.Level `env:"LOG_LEVEL"        envDefault:"INFO"`
	LegacyLevel slog.Level `env:"LEGACY_LOG_LEVEL" envDefault:"INFO"`
	Output      string     `env:"LOG_OUTPUT"       envDefault:"stdout"`
}

// ConfigureLoggingWithOptions installs a slog default logger built from opts
// and redirects the legacy log package into it.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.MinLevel}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	handler = &annotatedErrorHandler{inner: handler}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// ConfigureLogging reads Config from the environment and configures logging
// for the named application.
func ConfigureLogging(_ context.Context, app string, opts ...Option) (*slog.Logger, error) {
	cfg, err := envconfig.Parse[Config]()
	if err != nil {
		return nil, err
	}

	output, err := resolveOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	options := Options{
		Subsystem:   app,
		JSON:        cfg.JSON,
		MinLevel:    cfg.Level,
		LegacyLevel: cfg.LegacyLevel,
		Output:      output,
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options), nil
}

func resolveOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, name)
	}
}

// WithMuted suppresses all logging done through Get on the returned context.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("mute"), muted)
}

func isMuted(ctx context.Context) bool {
	muted, ok := ctx.Value(contextKey("mute")).(bool)

	return ok && muted
}

// WithSubsystem overrides the subsystem attribute for loggers obtained from ctx.
func WithSubsystem(ctx context.Context, subsystem string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("subsystem"), subsystem)
}

// GetSubsystem returns the subsystem from ctx, falling back to the configured default.
func GetSubsystem(ctx context.Context) string { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	if sub, ok := ctx.Value(contextKey("subsystem")).(string); ok {
		return sub
	}

	if sub, ok := subsystem.Load().(string); ok {
		return sub
	}

	return ""
}

// With returns a context whose loggers include the given key-value pairs.
func With(ctx context.Context, values ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(values) == 0 {
		return ctx
	}

	existing := getValues(ctx)
	merged := make([]any, 0, len(existing)+len(values))
	merged = append(merged, existing...)
	merged = append(merged, values...)

	return context.WithValue(ctx, contextKey("loggerValues"), merged)
}

func getValues(ctx context.Context) []any {
	vals, _ := ctx.Value(contextKey("loggerValues")).([]any)

	return vals
}

var hostname = lazy.New(func() string { //nolint:gochecknoglobals
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return h
})

// nullHandler discards everything; it backs muted contexts.
type nullHandler struct{}

func (n *nullHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (n *nullHandler) Handle(context.Context, slog.Record) error { return nil }
func (n *nullHandler) WithAttrs([]slog.Attr) slog.Handler        { return n }
func (n *nullHandler) WithGroup(string) slog.Handler             { return n }

var nullLogger = slog.New(&nullHandler{}) //nolint:gochecknoglobals

// Get returns a logger for the first non-nil context given (or Background).
// The logger carries the subsystem, the host name and any values added via With.
//
//nolint:contextcheck
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := context.Background()

	for _, c := range ctx {
		if c != nil {
			realCtx = c

			break
		}
	}

	if isMuted(realCtx) {
		return nullLogger
	}

	logger := slog.Default().With(
		"subsystem", GetSubsystem(realCtx),
		"pod", hostname.Get())

	if vals := getValues(realCtx); len(vals) > 0 {
		logger = logger.With(vals...)
	}

	return logger
}
