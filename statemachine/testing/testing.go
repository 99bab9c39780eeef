// Package testing provides testing utilities for state machine controllers.
//
//nolint:varnamelen // Short names idiomatic
package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// TestController wraps Controller and records every step and state entry.
//
// It registers one persistent hook per state to observe entries, so
// ListenerCount includes them and RemoveAllListeners stops the recording.
type TestController struct {
	*statemachine.Controller

	t *testing.T

	mu         sync.Mutex
	trace      []TraceEntry
	entries    []HookEntry
	assertions []Assertion
}

// TraceEntry records a single step.
type TraceEntry struct {
	Timestamp time.Time
	Action    string
	Args      []any
	Before    string
	After     string
	Rejected  bool
	Duration  time.Duration
	Error     error
}

// HookEntry records one entry into a state, as seen by hooks.
type HookEntry struct {
	State string
	Args  []any
}

// Assertion represents a test assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// NewTestController creates a test controller for a config. Logs go to t.
func NewTestController(t *testing.T, config *statemachine.Config, opts ...statemachine.Option) *TestController {
	t.Helper()

	opts = append([]statemachine.Option{
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
	}, opts...)

	ctrl, err := statemachine.New(config, opts...)
	require.NoError(t, err, "failed to create controller")

	return wrap(t, ctrl)
}

// NewTestControllerWithTable creates a test controller for a custom table.
func NewTestControllerWithTable(
	t *testing.T, table statemachine.Table, opts ...statemachine.Option,
) *TestController {
	t.Helper()

	opts = append([]statemachine.Option{
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
	}, opts...)

	ctrl, err := statemachine.NewWithTable(table, opts...)
	require.NoError(t, err, "failed to create controller")

	return wrap(t, ctrl)
}

func wrap(t *testing.T, ctrl *statemachine.Controller) *TestController {
	t.Helper()

	tc := &TestController{
		Controller: ctrl,
		t:          t,
	}

	for _, state := range ctrl.States() {
		ctrl.On(state, func(_ context.Context, args ...any) {
			tc.mu.Lock()
			defer tc.mu.Unlock()

			tc.entries = append(tc.entries, HookEntry{State: state, Args: args})
		})
	}

	return tc
}

// Step runs action to completion and records it.
func (tc *TestController) Step(ctx context.Context, action string, args ...any) (*statemachine.EventData, error) {
	tc.t.Helper()

	entry := TraceEntry{
		Timestamp: time.Now(),
		Action:    action,
		Args:      args,
		Before:    tc.State(),
	}

	ev, err := tc.Do(ctx, action, args...)

	entry.Duration = time.Since(entry.Timestamp)
	entry.After = tc.State()
	entry.Rejected = ev == nil && err == nil
	entry.Error = err

	tc.mu.Lock()
	tc.trace = append(tc.trace, entry)
	tc.mu.Unlock()

	return ev, err
}

// MustStep runs action and fails the test unless it was accepted.
func (tc *TestController) MustStep(action string, args ...any) *statemachine.EventData {
	tc.t.Helper()

	ev, err := tc.Step(tc.t.Context(), action, args...)
	require.NoError(tc.t, err, "step %q failed", action)
	require.NotNil(tc.t, ev, "step %q was rejected from %q", action, tc.State())

	return ev
}

// MustReject runs action and fails the test unless it was rejected.
func (tc *TestController) MustReject(action string, args ...any) {
	tc.t.Helper()

	ev, err := tc.Step(tc.t.Context(), action, args...)
	require.NoError(tc.t, err, "step %q failed", action)
	require.Nil(tc.t, ev, "step %q should have been rejected", action)
}

// AssertStateVisited checks if a state was entered during the test.
func (tc *TestController) AssertStateVisited(stateName string) {
	tc.t.Helper()

	tc.check(StateWasVisited(stateName))
}

// AssertTransitionTaken checks if a specific transition occurred.
func (tc *TestController) AssertTransitionTaken(from, to string) {
	tc.t.Helper()

	tc.check(TransitionWasTaken(from, to))
}

// AssertCurrentState checks the controller's state.
func (tc *TestController) AssertCurrentState(expected string) {
	tc.t.Helper()

	tc.check(CurrentStateIs(expected))
}

// AssertPath checks the sequence of entered states.
func (tc *TestController) AssertPath(states ...string) {
	tc.t.Helper()

	tc.check(PathIs(states...))
}

// AssertMatches checks an arbitrary matcher.
func (tc *TestController) AssertMatches(matcher Matcher) {
	tc.t.Helper()

	tc.check(matcher)
}

func (tc *TestController) check(matcher Matcher) {
	tc.t.Helper()

	passed, err := matcher.Match(tc)

	tc.mu.Lock()
	tc.assertions = append(tc.assertions, Assertion{
		Name:   matcher.Description(),
		Passed: passed,
		Error:  err,
	})
	tc.mu.Unlock()

	require.True(tc.t, passed, "%s: %v", matcher.Description(), err)
}

// GetTrace returns the recorded steps.
func (tc *TestController) GetTrace() []TraceEntry {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	return slices.Clone(tc.trace)
}

// GetEntries returns the recorded state entries.
func (tc *TestController) GetEntries() []HookEntry {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	return slices.Clone(tc.entries)
}

// GetAssertions returns all assertions made.
func (tc *TestController) GetAssertions() []Assertion {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	return slices.Clone(tc.assertions)
}

// Path returns the entered states in order, starting with the state the
// controller was in before the first step.
func (tc *TestController) Path() []string {
	trace := tc.GetTrace()

	var path []string

	for _, entry := range trace {
		if len(path) == 0 {
			path = append(path, entry.Before)
		}

		if !entry.Rejected && entry.Error == nil {
			path = append(path, entry.After)
		}
	}

	return path
}

func (e TraceEntry) String() string {
	switch {
	case e.Error != nil:
		return fmt.Sprintf("%s: %s failed: %v", e.Before, e.Action, e.Error)
	case e.Rejected:
		return fmt.Sprintf("%s: %s rejected", e.Before, e.Action)
	default:
		return fmt.Sprintf("%s -[%s]-> %s", e.Before, e.Action, e.After)
	}
}
