package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	ErrStateNotFound            = errors.New("state not found")
	ErrInvalidConfig            = errors.New("invalid configuration")
	ErrGuardFailed              = errors.New("guard evaluation failed")
	ErrTransitionCallbackFailed = errors.New("transition callback failed")

	// ErrStaleTransition indicates that the table moved away from the
	// descriptor's source state before the descriptor was committed.
	ErrStaleTransition = errors.New("stale transition")
	// ErrHookPanicked indicates that a state hook panicked during dispatch.
	ErrHookPanicked = errors.New("hook panicked")
	// ErrNilTransition indicates that a nil descriptor was committed.
	ErrNilTransition = errors.New("nil transition")
	// ErrNilTable indicates that a controller was constructed without a table.
	ErrNilTable = errors.New("transition table is required")

	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = errors.New("initial state is required")
	// ErrInitialStateNotFound indicates that the initial state does not exist.
	ErrInitialStateNotFound = errors.New("initial state does not exist")
	// ErrDuplicateStateName indicates that a duplicate state name was found.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrTransitionNameRequired indicates that a transition action name is required.
	ErrTransitionNameRequired = errors.New("transition name is required")
	// ErrTransitionFromRequired indicates that a transition from state is required.
	ErrTransitionFromRequired = errors.New("transition from state is required")
	// ErrTransitionToRequired indicates that a transition to state is required.
	ErrTransitionToRequired = errors.New("transition to state is required")
	// ErrTransitionFromNotFound indicates that a transition from state does not exist.
	ErrTransitionFromNotFound = errors.New("transition from state does not exist")
	// ErrTransitionToNotFound indicates that a transition to state does not exist.
	ErrTransitionToNotFound = errors.New("transition to state does not exist")
	// ErrWildcardTarget indicates that a transition targets the wildcard state.
	ErrWildcardTarget = errors.New("transition target cannot be a wildcard")
	// ErrNoConfigLoader indicates that no config loader is registered.
	ErrNoConfigLoader = errors.New("no config loader registered; use SetConfigLoader() or provide a file path")
)

// StepError is the failure of a step after the pending lock was taken.
type StepError struct {
	Action string
	State  string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s from %s: %v", e.Action, e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("transition from %s: %v", e.From, e.Err)
	}

	return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From: from,
		To:   to,
		Err:  err,
	}
}
