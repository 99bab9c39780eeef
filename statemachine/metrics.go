package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unknownActionLabel is the action label for actions the table does not define.
const unknownActionLabel = "unknown"

// Metric definitions with appropriate labels.
var (
	// stepsTotal counts steps by machine, action, and outcome (accepted, illegal, busy, failed).
	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_steps_total",
		Help: "Total number of steps by machine, action, and outcome",
	}, []string{"machine", "action", "outcome"})

	// transitionsTotal counts committed transitions.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of state transitions by machine, from_state, and to_state",
	}, []string{"machine", "from_state", "to_state"})

	// stepDuration tracks the time a step holds the pending lock.
	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_step_duration_seconds",
		Help:    "Duration of steps from lock acquisition to release by machine and outcome",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"machine", "outcome"})

	hooksFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_hooks_fired_total",
		Help: "Total number of hooks fired by machine, state, and kind (on or once)",
	}, []string{"machine", "state", "kind"})

	pendingSteps = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statemachine_pending",
		Help: "1 while a step of the machine holds the pending lock",
	}, []string{"machine"})
)
