package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/amp-fsm/statemachine"
	"gopkg.in/yaml.v3"
)

// LoadTestConfig loads a config from the testdata directory.
func LoadTestConfig(name string) (*statemachine.Config, error) {
	path := filepath.Join("testdata", name)

	return statemachine.LoadConfig(path)
}

// CreateTestConfig creates a config from "action:from>to" triples.
func CreateTestConfig(name, initialState string, transitions ...[3]string) *statemachine.Config {
	config := &statemachine.Config{
		Name:         name,
		InitialState: initialState,
		Transitions:  make([]statemachine.TransitionConfig, 0, len(transitions)),
	}

	for _, transition := range transitions {
		config.Transitions = append(config.Transitions, statemachine.TransitionConfig{
			Name: transition[0],
			From: statemachine.StateList{transition[1]},
			To:   transition[2],
		})
	}

	return config
}

// SaveTestConfig writes config as YAML into a temporary directory and
// returns its path.
func SaveTestConfig(t *testing.T, name string, config *statemachine.Config) string {
	t.Helper()

	data, err := yaml.Marshal(config)
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}

	path := filepath.Join(t.TempDir(), name)

	err = os.WriteFile(path, data, 0o600)
	if err != nil {
		t.Fatalf("failed to write config: %v", fmt.Errorf("%s: %w", path, err))
	}

	return path
}

// CommonTestConfigs provides frequently used test configurations.
//
//nolint:gochecknoglobals
var CommonTestConfigs = struct {
	Linear    func() *statemachine.Config
	Branching func() *statemachine.Config
	Loop      func() *statemachine.Config
	Complex   func() *statemachine.Config
}{
	Linear: func() *statemachine.Config {
		return CreateTestConfig("linear", "start",
			[3]string{"next", "start", "middle"},
			[3]string{"next", "middle", "end"},
		)
	},
	Branching: func() *statemachine.Config {
		return CreateTestConfig("branching", "start",
			[3]string{"succeed", "start", "success"},
			[3]string{"fail", "start", "failure"},
		)
	},
	Loop: func() *statemachine.Config {
		config := CreateTestConfig("loop", "start",
			[3]string{"attempt", "start", "retry"},
			[3]string{"attempt", "retry", "retry"},
			[3]string{"complete", "retry", "complete"},
		)
		config.AllowSelfTransitions = true

		return config
	},
	Complex: func() *statemachine.Config {
		config := CreateTestConfig("complex", "init",
			[3]string{"validate", "init", "validate"},
			[3]string{"process", "validate", "process"},
			[3]string{"reject", "validate", "failure"},
			[3]string{"succeed", "process", "success"},
			[3]string{"retry", "process", "retry"},
			[3]string{"process", "retry", "process"},
			[3]string{"give_up", "retry", "failure"},
		)
		config.States = []string{"init", "validate", "process", "retry", "success", "failure"}

		return config
	},
}
