package statemachine

// Builder provides a fluent API for constructing transition tables and the
// controllers that drive them.
type Builder struct {
	config       *Config
	tableOptions []TableOption
	options      []Option
}

// NewBuilder creates a new builder for a machine called name.
func NewBuilder(name string) *Builder {
	return &Builder{
		config: &Config{
			Name:        name,
			Transitions: []TransitionConfig{},
		},
	}
}

// WithInitialState sets the initial state.
func (b *Builder) WithInitialState(state string) *Builder {
	b.config.InitialState = state

	return b
}

// WithStates declares the closed set of states.
func (b *Builder) WithStates(states ...string) *Builder {
	b.config.States = append(b.config.States, states...)

	return b
}

// AllowSelfTransitions lets transitions whose target is the current state run.
func (b *Builder) AllowSelfTransitions() *Builder {
	b.config.AllowSelfTransitions = true

	return b
}

// AddTransition adds a transition configuration.
func (b *Builder) AddTransition(config TransitionConfig) *Builder {
	b.config.Transitions = append(b.config.Transitions, config)

	return b
}

// Permit adds action moving from each of the from states (or Wildcard) to to.
func (b *Builder) Permit(action, to string, from ...string) *Builder {
	return b.AddTransition(TransitionConfig{
		Name: action,
		From: from,
		To:   to,
	})
}

// WithGuard adds a guard for action.
func (b *Builder) WithGuard(action string, guard GuardFunc) *Builder {
	b.tableOptions = append(b.tableOptions, WithGuard(action, guard))

	return b
}

// WithOptions adds controller options applied by Build.
func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.options = append(b.options, opts...)

	return b
}

// Config returns the configuration built so far.
func (b *Builder) Config() *Config {
	return b.config
}

// BuildTable validates the configuration and returns the table alone.
func (b *Builder) BuildTable() (*MemoryTable, error) {
	return NewTable(b.config, b.tableOptions...)
}

// Build constructs the controller.
func (b *Builder) Build() (*Controller, error) {
	opts := append([]Option{WithTableOptions(b.tableOptions...)}, b.options...)

	return New(b.config, opts...)
}
