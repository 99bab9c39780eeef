package statemachine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConfigMissing = errors.New("config missing")

type mapConfigLoader map[string]string

func (m mapConfigLoader) LoadByName(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, errConfigMissing
	}

	return []byte(data), nil
}

func (m mapConfigLoader) ListAvailable() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	return names
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("testdata/job.yaml")
	require.NoError(t, err)

	assert.Equal(t, "job", cfg.Name)
	assert.Equal(t, "idle", cfg.InitialState)
	require.Len(t, cfg.Transitions, 5)
	assert.Equal(t, StateList{"idle"}, cfg.Transitions[0].From)
	assert.Equal(t, StateList{"running", "paused"}, cfg.Transitions[3].From)
	assert.Equal(t, StateList{Wildcard}, cfg.Transitions[4].From)
	assert.Equal(t, []string{"idle", "running", "paused", "done"}, cfg.StateNames())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigFromFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"machines/light.yaml": &fstest.MapFile{Data: []byte(`
initialState: dark
transitions:
  - {name: toggle, from: dark, to: lit}
  - {name: toggle, from: lit, to: dark}
`)},
	}

	cfg, err := LoadConfigFromFS(fsys, "machines/light.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"dark", "lit"}, cfg.StateNames())

	_, err = LoadConfigFromFS(fsys, "machines/missing.yaml")
	require.Error(t, err)
}

func TestLoadConfigFromBytesRejectsBadFrom(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromBytes([]byte(`
initialState: a
transitions:
  - name: go
    from: {state: a}
    to: b
`))
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfigFromBytes([]byte("initialState: [unterminated"))
	require.Error(t, err)
}

//nolint:paralleltest // Modifies the global config loader
func TestLoadConfigByName(t *testing.T) {
	SetConfigLoader(nil)

	_, err := LoadConfig("light")
	require.ErrorIs(t, err, ErrNoConfigLoader)

	SetConfigLoader(mapConfigLoader{
		"light": "initialState: dark\ntransitions:\n  - {name: toggle, from: dark, to: lit}\n",
	})
	t.Cleanup(func() { SetConfigLoader(nil) })

	cfg, err := LoadConfig("light")
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.InitialState)

	_, err = LoadConfig("heater")
	require.ErrorIs(t, err, errConfigMissing)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"valid", func(*Config) {}, nil},
		{"no initial state", func(c *Config) { c.InitialState = "" }, ErrInitialStateRequired},
		{"initial state not declared", func(c *Config) { c.InitialState = "ajar" }, ErrInitialStateNotFound},
		{"duplicate state", func(c *Config) { c.States = append(c.States, "open") }, ErrDuplicateStateName},
		{"empty state", func(c *Config) { c.States = append(c.States, "") }, ErrStateNameRequired},
		{"unnamed transition", func(c *Config) { c.Transitions[0].Name = "" }, ErrTransitionNameRequired},
		{"no source", func(c *Config) { c.Transitions[0].From = nil }, ErrTransitionFromRequired},
		{"no target", func(c *Config) { c.Transitions[0].To = "" }, ErrTransitionToRequired},
		{"wildcard target", func(c *Config) { c.Transitions[0].To = Wildcard }, ErrWildcardTarget},
		{"unknown source", func(c *Config) { c.Transitions[0].From = StateList{"attic"} }, ErrTransitionFromNotFound},
		{"unknown target", func(c *Config) { c.Transitions[0].To = "attic" }, ErrTransitionToNotFound},
		{"implicit states", func(c *Config) {
			c.States = nil
			c.Transitions[0].To = "attic"
		}, nil},
		{"implicit initial state unused by transitions", func(c *Config) {
			c.States = nil
			c.InitialState = "ajar"
		}, ErrInitialStateNotFound},
		{"initial state without transitions", func(c *Config) {
			c.States = nil
			c.Transitions = nil
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := doorConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestStateNamesOrder(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		InitialState: "b",
		States:       []string{"a"},
		Transitions: []TransitionConfig{
			{Name: "x", From: StateList{Wildcard, "c"}, To: "d"},
			{Name: "y", From: StateList{"d"}, To: "a"},
		},
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, cfg.StateNames())
}
