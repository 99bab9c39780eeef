package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowActions labels each edge with the action that triggers it
	ShowActions bool

	// ExpandWildcards draws wildcard transitions from every state instead of
	// a single note
	ExpandWildcards bool

	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right)
	Direction string

	// HighlightPath highlights a specific state path through the diagram
	HighlightPath []string

	// CurrentState marks the state a running machine is in
	CurrentState string

	// Theme controls the color scheme: "default" or "dark"
	Theme string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowActions:     true,
		ExpandWildcards: true,
		Direction:       "TD",
		Theme:           "default",
	}
}

// WithShowActions enables/disables edge labels.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithExpandWildcards enables/disables expanding wildcard sources.
func (o Options) WithExpandWildcards(expand bool) Options {
	o.ExpandWildcards = expand

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithCurrentState marks state as current.
func (o Options) WithCurrentState(state string) Options {
	o.CurrentState = state

	return o
}

// WithTheme sets the color theme.
func (o Options) WithTheme(theme string) Options {
	o.Theme = theme

	return o
}
