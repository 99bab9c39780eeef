package testing

import (
	"testing"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// TestScenario is a sequence of steps run against a fresh controller.
type TestScenario struct {
	Name     string
	Config   *statemachine.Config
	Options  []statemachine.Option
	Steps    []ScenarioStep
	Matchers []Matcher
}

// ScenarioStep is one requested action and its expected result. An empty
// WantState skips the state check.
type ScenarioStep struct {
	Action       string
	Args         []any
	WantRejected bool
	WantError    error
	WantState    string
}

// RunScenario executes a test scenario and validates results.
func RunScenario(t *testing.T, scenario TestScenario) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		tc := NewTestController(t, scenario.Config, scenario.Options...)

		for i, step := range scenario.Steps {
			ev, err := tc.Step(t.Context(), step.Action, step.Args...)

			switch {
			case step.WantError != nil:
				require.ErrorIs(t, err, step.WantError, "step %d (%s)", i, step.Action)
			case step.WantRejected:
				require.NoError(t, err, "step %d (%s)", i, step.Action)
				require.Nil(t, ev, "step %d (%s) should be rejected", i, step.Action)
			default:
				require.NoError(t, err, "step %d (%s)", i, step.Action)
				require.NotNil(t, ev, "step %d (%s) was rejected", i, step.Action)
			}

			if step.WantState != "" {
				require.Equal(t, step.WantState, tc.State(), "state after step %d (%s)", i, step.Action)
			}
		}

		for _, matcher := range scenario.Matchers {
			tc.AssertMatches(matcher)
		}
	})
}

// LinearWorkflowScenario walks the linear config from start to end.
func LinearWorkflowScenario() TestScenario {
	return TestScenario{
		Name:   "Linear Workflow",
		Config: CommonTestConfigs.Linear(),
		Steps: []ScenarioStep{
			{Action: "next", WantState: "middle"},
			{Action: "next", WantState: "end"},
			{Action: "next", WantRejected: true, WantState: "end"},
		},
		Matchers: []Matcher{
			PathIs("start", "middle", "end"),
			LastStepRejected(),
		},
	}
}

// BranchingWorkflowScenario takes the failure branch.
func BranchingWorkflowScenario() TestScenario {
	return TestScenario{
		Name:   "Branching Workflow",
		Config: CommonTestConfigs.Branching(),
		Steps: []ScenarioStep{
			{Action: "fail", WantState: "failure"},
			{Action: "succeed", WantRejected: true},
		},
		Matchers: []Matcher{
			TransitionWasTaken("start", "failure"),
			NoStepFailed(),
		},
	}
}

// RetryScenario loops through retry with self transitions allowed.
func RetryScenario() TestScenario {
	return TestScenario{
		Name:   "Retry Logic",
		Config: CommonTestConfigs.Loop(),
		Steps: []ScenarioStep{
			{Action: "attempt", WantState: "retry"},
			{Action: "attempt", WantState: "retry"},
			{Action: "attempt", WantState: "retry"},
			{Action: "complete", WantState: "complete"},
		},
		Matchers: []Matcher{
			PathIs("start", "retry", "retry", "retry", "complete"),
		},
	}
}
