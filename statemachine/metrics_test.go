package statemachine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStepMetrics verifies the counters and gauges recorded for each outcome.
// Labels are scoped to a machine name no other test uses.
//
//nolint:paralleltest // Test reads global Prometheus metric state
func TestStepMetrics(t *testing.T) {
	const machine = "metrics-test"

	release := make(chan struct{})

	ctrl := newJobController(t,
		WithName(machine),
		WithOnTransition(Keyed(map[string]TransitionFunc{
			"done": Async(func(context.Context, *EventData) error {
				<-release

				return nil
			}),
		})),
	)

	ctrl.On("running", func(context.Context, ...any) {})
	ctrl.Once("running", func(context.Context, ...any) {})

	_, err := ctrl.Do(t.Context(), "start")
	require.NoError(t, err)

	_, err = ctrl.Do(t.Context(), "start")
	require.NoError(t, err)

	pending := ctrl.Step(t.Context(), "finish")
	assert.InDelta(t, 1, testutil.ToFloat64(pendingSteps.WithLabelValues(machine)), 0)

	_, err = ctrl.Do(t.Context(), "finish")
	require.NoError(t, err)

	close(release)

	_, err = pending.Await()
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, "start", outcomeAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, "start", outcomeIllegal)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, "finish", outcomeBusy)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, "finish", outcomeAccepted)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(machine, "idle", "running")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(machine, "running", "done")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(hooksFiredTotal.WithLabelValues(machine, "running", hookKindPersistent)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(hooksFiredTotal.WithLabelValues(machine, "running", hookKindOnce)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(pendingSteps.WithLabelValues(machine)), 0)
	assert.Positive(t, testutil.CollectAndCount(stepDuration))

	ev, err := ctrl.Do(t.Context(), "teleport")
	require.NoError(t, err)
	assert.Nil(t, ev)

	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, unknownActionLabel, outcomeIllegal)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, "teleport", outcomeIllegal)), 0)
}

//nolint:paralleltest // Test reads global Prometheus metric state
func TestFailedStepMetrics(t *testing.T) {
	const machine = "metrics-failure-test"

	ctrl := newJobController(t,
		WithName(machine),
		WithOnTransition(Single(Sync(func(context.Context, *EventData) error { return errTest }))),
	)

	_, err := ctrl.Do(t.Context(), "start")
	require.Error(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(stepsTotal.WithLabelValues(machine, "start", outcomeFailed)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(transitionsTotal.WithLabelValues(machine, "idle", "running")), 0)
}
