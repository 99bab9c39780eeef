package testing

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Matcher errors.
var (
	ErrNoExecutionTrace    = errors.New("no execution trace available")
	ErrStepSucceeded       = errors.New("last step completed without error")
	ErrNoMatchersPassed    = errors.New("no matchers passed")
	ErrStateNotVisited     = errors.New("state was not visited")
	ErrTransitionNotTaken  = errors.New("transition was not taken")
	ErrStateMismatch       = errors.New("current state mismatch")
	ErrPathMismatch        = errors.New("path mismatch")
	ErrStepNotRejected     = errors.New("step was not rejected")
	ErrExecutionTooSlow    = errors.New("execution exceeded time limit")
	ErrUnexpectedStepError = errors.New("step failed")
)

// Matcher defines an assertion matcher interface.
type Matcher interface {
	Match(tc *TestController) (bool, error)
	Description() string
}

// StateWasVisited creates a matcher that checks if a state was entered.
func StateWasVisited(name string) Matcher {
	return &stateVisitedMatcher{stateName: name}
}

type stateVisitedMatcher struct {
	stateName string
}

func (m *stateVisitedMatcher) Match(tc *TestController) (bool, error) {
	for _, entry := range tc.GetEntries() {
		if entry.State == m.stateName {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.stateName)
}

func (m *stateVisitedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.stateName)
}

// TransitionWasTaken creates a matcher that checks if a transition occurred.
func TransitionWasTaken(from, to string) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from string
	to   string
}

func (m *transitionTakenMatcher) Match(tc *TestController) (bool, error) {
	for _, entry := range tc.GetTrace() {
		if !entry.Rejected && entry.Error == nil && entry.Before == m.from && entry.After == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// CurrentStateIs creates a matcher for the controller's current state.
func CurrentStateIs(state string) Matcher {
	return &currentStateMatcher{state: state}
}

type currentStateMatcher struct {
	state string
}

func (m *currentStateMatcher) Match(tc *TestController) (bool, error) {
	if actual := tc.State(); actual != m.state {
		return false, fmt.Errorf("%w: expected '%s', got '%s'", ErrStateMismatch, m.state, actual)
	}

	return true, nil
}

func (m *currentStateMatcher) Description() string {
	return fmt.Sprintf("current state should be '%s'", m.state)
}

// PathIs creates a matcher for the full sequence of states.
func PathIs(states ...string) Matcher {
	return &pathMatcher{states: states}
}

type pathMatcher struct {
	states []string
}

func (m *pathMatcher) Match(tc *TestController) (bool, error) {
	if actual := tc.Path(); !slices.Equal(actual, m.states) {
		return false, fmt.Errorf("%w: expected %v, got %v", ErrPathMismatch, m.states, actual)
	}

	return true, nil
}

func (m *pathMatcher) Description() string {
	return fmt.Sprintf("path should be %v", m.states)
}

// LastStepRejected creates a matcher that checks the last step was rejected.
func LastStepRejected() Matcher {
	return &lastStepRejectedMatcher{}
}

type lastStepRejectedMatcher struct{}

func (m *lastStepRejectedMatcher) Match(tc *TestController) (bool, error) {
	trace := tc.GetTrace()
	if len(trace) == 0 {
		return false, ErrNoExecutionTrace
	}

	if !trace[len(trace)-1].Rejected {
		return false, ErrStepNotRejected
	}

	return true, nil
}

func (m *lastStepRejectedMatcher) Description() string {
	return "last step should be rejected"
}

// LastStepFailed creates a matcher that checks the last step failed.
func LastStepFailed() Matcher {
	return &lastStepFailedMatcher{}
}

type lastStepFailedMatcher struct{}

func (m *lastStepFailedMatcher) Match(tc *TestController) (bool, error) {
	trace := tc.GetTrace()
	if len(trace) == 0 {
		return false, ErrNoExecutionTrace
	}

	if trace[len(trace)-1].Error == nil {
		return false, ErrStepSucceeded
	}

	return true, nil
}

func (m *lastStepFailedMatcher) Description() string {
	return "last step should fail"
}

// NoStepFailed creates a matcher that checks no recorded step failed.
func NoStepFailed() Matcher {
	return &noStepFailedMatcher{}
}

type noStepFailedMatcher struct{}

func (m *noStepFailedMatcher) Match(tc *TestController) (bool, error) {
	for _, entry := range tc.GetTrace() {
		if entry.Error != nil {
			return false, fmt.Errorf("%w: %s: %w", ErrUnexpectedStepError, entry.Action, entry.Error)
		}
	}

	return true, nil
}

func (m *noStepFailedMatcher) Description() string {
	return "no step should fail"
}

// ExecutionTookLessThan creates a matcher that checks total step duration.
func ExecutionTookLessThan(duration time.Duration) Matcher {
	return &executionDurationMatcher{maxDuration: duration}
}

type executionDurationMatcher struct {
	maxDuration time.Duration
}

func (m *executionDurationMatcher) Match(tc *TestController) (bool, error) {
	totalDuration := time.Duration(0)
	for _, entry := range tc.GetTrace() {
		totalDuration += entry.Duration
	}

	if totalDuration > m.maxDuration {
		return false, fmt.Errorf("%w: took %s, max %s", ErrExecutionTooSlow, totalDuration, m.maxDuration)
	}

	return true, nil
}

func (m *executionDurationMatcher) Description() string {
	return fmt.Sprintf("execution should take less than %s", m.maxDuration)
}

// All creates a matcher that requires all sub-matchers to pass.
func All(matchers ...Matcher) Matcher {
	return &allMatcher{matchers: matchers}
}

type allMatcher struct {
	matchers []Matcher
}

func (m *allMatcher) Match(tc *TestController) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(tc)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any(matchers ...Matcher) Matcher {
	return &anyMatcher{matchers: matchers}
}

type anyMatcher struct {
	matchers []Matcher
}

func (m *anyMatcher) Match(tc *TestController) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(tc)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher) Description() string {
	return "at least one matcher should pass"
}
