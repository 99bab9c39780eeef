package statemachine

const defaultMachineName = "statemachine"

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	name         string
	onTransition OnTransition
	logger       Logger
	tableOptions []TableOption
}

// WithOnTransition sets the callback run for every accepted transition.
func WithOnTransition(onTransition OnTransition) Option {
	return func(o *controllerOptions) {
		o.onTransition = onTransition
	}
}

// WithLogger replaces the default slog-backed logger.
func WithLogger(logger Logger) Option {
	return func(o *controllerOptions) {
		o.logger = logger
	}
}

// WithName sets the machine name used in logs, metrics and spans.
func WithName(name string) Option {
	return func(o *controllerOptions) {
		o.name = name
	}
}

// WithTableOptions passes options to the MemoryTable built by New.
// NewWithTable ignores them.
func WithTableOptions(opts ...TableOption) Option {
	return func(o *controllerOptions) {
		o.tableOptions = append(o.tableOptions, opts...)
	}
}

func applyOptions(opts []Option) *controllerOptions {
	options := &controllerOptions{}

	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	return options
}
