package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	ctrl, err := NewBuilder("turnstile").
		WithInitialState("locked").
		WithStates("locked", "unlocked").
		Permit("coin", "unlocked", "locked").
		Permit("push", "locked", "unlocked").
		Permit("coin", "unlocked", "unlocked").
		AllowSelfTransitions().
		WithGuard("coin", func(_ context.Context, ev *EventData) (bool, error) {
			return ev.Arg != "slug", nil
		}).
		WithOptions(WithName("turnstile-1")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "turnstile-1", ctrl.Name())
	assert.Equal(t, []string{"coin"}, ctrl.Methods())

	ev, err := ctrl.Do(t.Context(), "coin", "slug")
	require.NoError(t, err)
	assert.Nil(t, ev)

	ev, err = ctrl.Do(t.Context(), "coin", "quarter")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "unlocked", ctrl.State())

	ev, err = ctrl.Do(t.Context(), "coin", "quarter")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "unlocked", ev.Before)
	assert.Equal(t, "unlocked", ev.On)
}

func TestBuilderBuildTable(t *testing.T) {
	t.Parallel()

	b := NewBuilder("light").
		WithInitialState("dark").
		AddTransition(TransitionConfig{Name: "toggle", From: StateList{"dark"}, To: "lit"})

	table, err := b.BuildTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"dark", "lit"}, table.States())
	assert.Equal(t, "light", b.Config().Name)

	_, err = NewBuilder("broken").Permit("go", "b", "a").Build()
	require.ErrorIs(t, err, ErrInitialStateRequired)
}
