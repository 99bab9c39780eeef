package statemachine

import (
	"context"
	"runtime/debug"

	"github.com/amp-labs/amp-fsm/future"
	"github.com/amp-labs/amp-fsm/utils"
)

// TransitionFunc is called for an accepted transition before the table moves.
// A nil future means the callback finished synchronously.
type TransitionFunc func(ctx context.Context, ev *EventData) *future.Future[struct{}]

// Sync adapts a blocking callback. It runs on the stepping goroutine.
func Sync(fn func(ctx context.Context, ev *EventData) error) TransitionFunc {
	return func(ctx context.Context, ev *EventData) *future.Future[struct{}] {
		if err := fn(ctx, ev); err != nil {
			return future.Failed[struct{}](err)
		}

		return nil
	}
}

// Async adapts a callback that runs on its own goroutine. The step stays
// pending until it returns.
func Async(fn func(ctx context.Context, ev *EventData) error) TransitionFunc {
	return func(ctx context.Context, ev *EventData) *future.Future[struct{}] {
		return future.GoContext(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx, ev)
		})
	}
}

// OnTransition is either a single callback for every transition or callbacks
// keyed by destination state, where the Wildcard key runs for all of them.
// The zero value does nothing.
type OnTransition struct {
	single TransitionFunc
	keyed  map[string]TransitionFunc
}

// Single runs fn for every transition.
func Single(fn TransitionFunc) OnTransition {
	return OnTransition{single: fn}
}

// Keyed runs handlers[Wildcard] and handlers[ev.On] for each transition,
// and waits for both. Missing keys are skipped.
func Keyed(handlers map[string]TransitionFunc) OnTransition {
	keyed := make(map[string]TransitionFunc, len(handlers))

	for state, fn := range handlers {
		if fn != nil {
			keyed[state] = fn
		}
	}

	return OnTransition{keyed: keyed}
}

func (o OnTransition) dispatch(ctx context.Context, ev *EventData) *future.Future[struct{}] {
	if o.single != nil {
		return invokeTransition(ctx, o.single, ev)
	}

	var pending []*future.Future[struct{}]

	if fn, ok := o.keyed[Wildcard]; ok {
		pending = append(pending, invokeTransition(ctx, fn, ev))
	}

	if fn, ok := o.keyed[ev.On]; ok && ev.On != Wildcard {
		pending = append(pending, invokeTransition(ctx, fn, ev))
	}

	switch len(pending) {
	case 0:
		return future.Successful(struct{}{})
	case 1:
		return pending[0]
	default:
		return future.Map(future.Combine(pending...), func([]struct{}) (struct{}, error) {
			return struct{}{}, nil
		})
	}
}

func invokeTransition(ctx context.Context, fn TransitionFunc, ev *EventData) (result *future.Future[struct{}]) {
	defer func() {
		if r := recover(); r != nil {
			result = future.Failed[struct{}](utils.GetPanicRecoveryError(r, debug.Stack()))
		}
	}()

	result = fn(ctx, ev)
	if result == nil {
		result = future.Successful(struct{}{})
	}

	return result
}
