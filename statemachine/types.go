package statemachine

import (
	"context"

	"github.com/amp-labs/amp-fsm/future"
)

// Wildcard matches any state as a transition source, and is the catch-all key
// of a keyed OnTransition.
const Wildcard = "*"

// EventData describes an accepted transition. It is not modified after the
// table produces it.
type EventData struct {
	Before string `json:"before" yaml:"before"`
	On     string `json:"on"     yaml:"on"`
	Action string `json:"action" yaml:"action"`
	Arg    any    `json:"arg"    yaml:"arg"`
}

// NewEventData builds a descriptor. Arg is nil without arguments, the argument
// itself when exactly one is given, and the whole slice otherwise.
func NewEventData(before, on, action string, args ...any) *EventData {
	ev := &EventData{
		Before: before,
		On:     on,
		Action: action,
	}

	switch len(args) {
	case 0:
	case 1:
		ev.Arg = args[0]
	default:
		ev.Arg = append([]any(nil), args...)
	}

	return ev
}

// Table decides which actions are legal and owns the current state.
//
// StepTo only computes the transition; a nil descriptor means the action is
// rejected. Commit moves the table to ev.On and must fail with
// ErrStaleTransition when the current state is no longer ev.Before.
type Table interface {
	State() string
	States() []string
	Methods(state string) []string
	StepTo(ctx context.Context, action string, args ...any) *future.Future[*EventData]
	Commit(ev *EventData) error
}

// Hook is called with the step's arguments when its state is entered.
type Hook func(ctx context.Context, args ...any)
