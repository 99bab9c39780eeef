package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigLoader is an interface for loading configurations by name.
// Applications can implement this to provide embedded or custom config loading.
type ConfigLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	// defaultConfigLoader is the global config loader used by LoadConfig.
	defaultConfigLoader ConfigLoader //nolint:gochecknoglobals
)

// SetConfigLoader sets the default config loader for name-based loading.
func SetConfigLoader(loader ConfigLoader) {
	defaultConfigLoader = loader
}

// Config defines a transition table.
type Config struct {
	Name                 string             `json:"name"                           yaml:"name"`
	InitialState         string             `json:"initialState"                   yaml:"initialState"`
	States               []string           `json:"states,omitempty"               yaml:"states,omitempty"`
	Transitions          []TransitionConfig `json:"transitions"                    yaml:"transitions"`
	AllowSelfTransitions bool               `json:"allowSelfTransitions,omitempty" yaml:"allowSelfTransitions,omitempty"`
}

// TransitionConfig declares that action Name moves any state in From to To.
type TransitionConfig struct {
	Name string    `json:"name" yaml:"name"`
	From StateList `json:"from" yaml:"from"`
	To   string    `json:"to"   yaml:"to"`
}

// StateList is a list of state names that also accepts a single YAML scalar.
type StateList []string

// UnmarshalYAML accepts both `from: idle` and `from: [idle, paused]`.
func (s *StateList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind { //nolint:exhaustive
	case yaml.ScalarNode:
		var state string
		if err := node.Decode(&state); err != nil {
			return err
		}

		*s = StateList{state}

		return nil
	case yaml.SequenceNode:
		var states []string
		if err := node.Decode(&states); err != nil {
			return err
		}

		*s = states

		return nil
	default:
		return fmt.Errorf("%w: line %d: from must be a state or a list of states", ErrInvalidConfig, node.Line)
	}
}

// Matches reports whether state is listed, directly or through the wildcard.
func (s StateList) Matches(state string) bool {
	for _, from := range s {
		if from == Wildcard || from == state {
			return true
		}
	}

	return false
}

// LoadConfig loads a configuration by path or name.
// Supports two modes:
//   - Path mode: Pass a file path (containing '/', '\', or ending in '.yaml') to load from filesystem
//     Example: LoadConfig("testdata/door.yaml")
//   - Name mode: Pass a bare name to load via the registered ConfigLoader
//     Example: LoadConfig("door")
//
// For name mode to work, you must call SetConfigLoader() first with an implementation.
func LoadConfig(pathOrName string) (*Config, error) {
	isPath := strings.Contains(pathOrName, "/") ||
		strings.Contains(pathOrName, `\`) ||
		strings.HasSuffix(strings.ToLower(pathOrName), ".yaml") ||
		strings.HasSuffix(strings.ToLower(pathOrName), ".yml")

	if isPath {
		data, err := os.ReadFile(pathOrName) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", pathOrName, err)
		}

		return LoadConfigFromBytes(data)
	}

	if defaultConfigLoader == nil {
		return nil, ErrNoConfigLoader
	}

	data, err := defaultConfigLoader.LoadByName(pathOrName)
	if err != nil {
		available := defaultConfigLoader.ListAvailable()

		return nil, fmt.Errorf("failed to load config %q (available: %v): %w", pathOrName, available, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes loads a configuration from YAML bytes.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigFromFS loads a configuration from an embedded filesystem.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// Validate checks what a table needs to be built. It does not look at the
// shape of the graph: unreachable or dead-end states are allowed.
//
// When States is given it is the closed set of states, and every transition
// must stay inside it. Otherwise states are taken from the transitions, and
// the initial state has to be the source or target of one of them.
func (c *Config) Validate() error {
	if c.InitialState == "" {
		return ErrInitialStateRequired
	}

	seen := make(map[string]bool, len(c.States))

	for _, state := range c.States {
		if state == "" {
			return ErrStateNameRequired
		}

		if seen[state] {
			return fmt.Errorf("%w: %s", ErrDuplicateStateName, state)
		}

		seen[state] = true
	}

	explicit := len(c.States) > 0

	if explicit && !seen[c.InitialState] {
		return fmt.Errorf("%w: %s", ErrInitialStateNotFound, c.InitialState)
	}

	if !explicit && len(c.Transitions) > 0 && !c.mentions(c.InitialState) {
		return fmt.Errorf("%w: %s", ErrInitialStateNotFound, c.InitialState)
	}

	for i, transition := range c.Transitions {
		if transition.Name == "" {
			return fmt.Errorf("transition %d: %w", i, ErrTransitionNameRequired)
		}

		if len(transition.From) == 0 {
			return fmt.Errorf("transition %d (%s): %w", i, transition.Name, ErrTransitionFromRequired)
		}

		if transition.To == "" {
			return fmt.Errorf("transition %d (%s): %w", i, transition.Name, ErrTransitionToRequired)
		}

		if transition.To == Wildcard {
			return fmt.Errorf("transition %d (%s): %w", i, transition.Name, ErrWildcardTarget)
		}

		if !explicit {
			continue
		}

		for _, from := range transition.From {
			if from != Wildcard && !seen[from] {
				return fmt.Errorf("transition %d (%s): %w: %s", i, transition.Name, ErrTransitionFromNotFound, from)
			}
		}

		if !seen[transition.To] {
			return fmt.Errorf("transition %d (%s): %w: %s", i, transition.Name, ErrTransitionToNotFound, transition.To)
		}
	}

	return nil
}

// mentions reports whether a transition names state as a source or target.
func (c *Config) mentions(state string) bool {
	for _, transition := range c.Transitions {
		if transition.To == state || slices.Contains(transition.From, state) {
			return true
		}
	}

	return false
}

// StateNames returns every state of the table in order of first appearance:
// declared states, the initial state, then transition sources and targets.
func (c *Config) StateNames() []string {
	names := make([]string, 0, len(c.States)+1)

	add := func(state string) {
		if state != "" && state != Wildcard && !slices.Contains(names, state) {
			names = append(names, state)
		}
	}

	for _, state := range c.States {
		add(state)
	}

	add(c.InitialState)

	for _, transition := range c.Transitions {
		for _, from := range transition.From {
			add(from)
		}

		add(transition.To)
	}

	return names
}
