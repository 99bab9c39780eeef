// Package visualizer generates Mermaid diagrams from transition tables.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/statemachine"
)

// Visualizer errors.
var (
	ErrConfigNil      = errors.New("config cannot be nil")
	ErrNoInitialState = errors.New("config must have an initial state")
)

type classDefs struct {
	terminal    string
	highlighted string
	current     string
}

//nolint:gochecknoglobals
var themes = map[string]classDefs{
	"default": {
		terminal:    "fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px",
		highlighted: "fill:#fff9c4,stroke:#f57f17,stroke-width:3px",
		current:     "fill:#e1f5ff,stroke:#01579b,stroke-width:3px",
	},
	"dark": {
		terminal:    "fill:#1b5e20,stroke:#a5d6a7,color:#fff",
		highlighted: "fill:#f57f17,stroke:#fff9c4,color:#fff",
		current:     "fill:#01579b,stroke:#e1f5ff,color:#fff",
	},
}

type edge struct {
	from, to string
	actions  []string
}

// GenerateMermaid converts a Config to a Mermaid state diagram.
func GenerateMermaid(config *statemachine.Config) (string, error) {
	return GenerateMermaidWithOptions(config, DefaultOptions())
}

// GenerateMermaidFromFile loads a config from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	return GenerateMermaid(config)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
// States and edges are emitted in natural order so that output is stable.
// States without outgoing transitions are drawn as terminal.
func GenerateMermaidWithOptions(config *statemachine.Config, opts Options) (string, error) {
	if config == nil {
		return "", ErrConfigNil
	}

	if config.InitialState == "" {
		return "", ErrNoInitialState
	}

	if opts.Direction == "" {
		opts.Direction = "TD"
	}

	theme, ok := themes[opts.Theme]
	if !ok {
		theme = themes["default"]
	}

	states := config.StateNames()
	natsort.Sort(states)

	edges, wildcards := collectEdges(config, states, opts.ExpandWildcards)

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", config.InitialState)

	hasOutgoing := make(map[string]bool)
	for _, e := range edges {
		hasOutgoing[e.from] = true
	}

	for _, state := range states {
		switch {
		case state == opts.CurrentState:
			fmt.Fprintf(&sb, "    class %s current\n", state)
		case slices.Contains(opts.HighlightPath, state):
			fmt.Fprintf(&sb, "    class %s highlighted\n", state)
		case !hasOutgoing[state] && len(wildcards) == 0:
			fmt.Fprintf(&sb, "    class %s terminal\n", state)
		}

		for _, e := range edges {
			if e.from == state {
				fmt.Fprintf(&sb, "    %s --> %s%s\n", e.from, e.to, label(e.actions, opts.ShowActions))
			}
		}

		if !hasOutgoing[state] && len(wildcards) == 0 {
			fmt.Fprintf(&sb, "    %s --> [*]\n", state)
		}
	}

	for _, e := range wildcards {
		fmt.Fprintf(&sb, "    note right of %s: from any state%s\n", e.to, label(e.actions, opts.ShowActions))
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    classDef terminal %s\n", theme.terminal)
	fmt.Fprintf(&sb, "    classDef highlighted %s\n", theme.highlighted)
	fmt.Fprintf(&sb, "    classDef current %s\n", theme.current)

	sb.WriteString("```\n")

	return sb.String(), nil
}

// collectEdges merges transitions sharing source and target into one edge
// with all their actions. Wildcard sources are expanded to every state when
// expand is set and returned separately otherwise.
func collectEdges(config *statemachine.Config, states []string, expand bool) (edges, wildcards []edge) {
	add := func(list []edge, from, to, action string) []edge {
		for i := range list {
			if list[i].from == from && list[i].to == to {
				if !slices.Contains(list[i].actions, action) {
					list[i].actions = append(list[i].actions, action)
				}

				return list
			}
		}

		return append(list, edge{from: from, to: to, actions: []string{action}})
	}

	for _, transition := range config.Transitions {
		for _, from := range transition.From {
			switch {
			case from != statemachine.Wildcard:
				edges = add(edges, from, transition.To, transition.Name)
			case expand:
				for _, state := range states {
					if state != transition.To || config.AllowSelfTransitions {
						edges = add(edges, state, transition.To, transition.Name)
					}
				}
			default:
				wildcards = add(wildcards, statemachine.Wildcard, transition.To, transition.Name)
			}
		}
	}

	sortEdges := func(list []edge) {
		slices.SortFunc(list, func(a, b edge) int {
			if a.to != b.to {
				return compareNatural(a.to, b.to)
			}

			return compareNatural(strings.Join(a.actions, ","), strings.Join(b.actions, ","))
		})
	}

	sortEdges(edges)
	sortEdges(wildcards)

	return edges, wildcards
}

func compareNatural(a, b string) int {
	switch {
	case a == b:
		return 0
	case natsort.Compare(a, b):
		return -1
	default:
		return 1
	}
}

func label(actions []string, show bool) string {
	if !show || len(actions) == 0 {
		return ""
	}

	sorted := slices.Clone(actions)
	natsort.Sort(sorted)

	return ": " + strings.Join(sorted, ", ")
}
