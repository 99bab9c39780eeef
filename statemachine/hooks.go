package statemachine

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/amp-labs/amp-fsm/future"
	"github.com/amp-labs/amp-fsm/utils"
	"github.com/google/uuid"
)

const (
	hookKindPersistent = "on"
	hookKindOnce       = "once"
)

// Listener is the handle of a registered hook, used to remove it with Off.
type Listener struct {
	ID    uuid.UUID
	State string

	hook Hook
}

// Detached wraps hook so that it runs on its own goroutine; dispatch does not
// wait for it and its panics are only logged.
func Detached(hook Hook) Hook {
	return func(ctx context.Context, args ...any) {
		future.AsyncContext(ctx, func(ctx context.Context) {
			hook(ctx, args...)
		})
	}
}

// hookRegistry holds per-state persistent and one-shot listeners in
// registration order. The mutex is never held while a hook runs.
type hookRegistry struct {
	mu         sync.Mutex
	persistent map[string][]*Listener
	once       map[string][]*Listener
}

func newHookRegistry() *hookRegistry {
	return &hookRegistry{
		persistent: make(map[string][]*Listener),
		once:       make(map[string][]*Listener),
	}
}

func (r *hookRegistry) add(state, kind string, hook Hook) *Listener {
	listener := &Listener{
		ID:    uuid.New(),
		State: state,
		hook:  hook,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if kind == hookKindOnce {
		r.once[state] = append(r.once[state], listener)
	} else {
		r.persistent[state] = append(r.persistent[state], listener)
	}

	return listener
}

func (r *hookRegistry) remove(state string, listener *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.persistent[state] = removeFirst(r.persistent[state], listener)
	r.once[state] = removeFirst(r.once[state], listener)
}

// take removes a one-shot listener and reports whether it was still registered.
func (r *hookRegistry) take(state string, listener *Listener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.once[state])
	r.once[state] = removeFirst(r.once[state], listener)

	return len(r.once[state]) < before
}

func (r *hookRegistry) clear(states ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(states) == 0 {
		clear(r.persistent)
		clear(r.once)

		return
	}

	for _, state := range states {
		delete(r.persistent, state)
		delete(r.once, state)
	}
}

func (r *hookRegistry) snapshot(state string) (persistent, once []*Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.persistent[state]), slices.Clone(r.once[state])
}

func (r *hookRegistry) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.persistent[state]) + len(r.once[state])
}

func removeFirst(listeners []*Listener, target *Listener) []*Listener {
	idx := slices.Index(listeners, target)
	if idx < 0 {
		return listeners
	}

	return slices.Delete(listeners, idx, idx+1)
}

// fireHooks runs the persistent hooks of ev.On and then drains its one-shot
// hooks. The first panic stops dispatch and is returned as ErrHookPanicked.
func (c *Controller) fireHooks(ctx context.Context, ev *EventData, args []any) error {
	persistent, once := c.hooks.snapshot(ev.On)

	for _, listener := range persistent {
		if err := c.callHook(ctx, listener, hookKindPersistent, args); err != nil {
			return err
		}
	}

	for _, listener := range once {
		if !c.hooks.take(ev.On, listener) {
			continue
		}

		if err := c.callHook(ctx, listener, hookKindOnce, args); err != nil {
			return err
		}
	}

	return nil
}

func (c *Controller) callHook(ctx context.Context, listener *Listener, kind string, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: listener %s: %w", ErrHookPanicked, listener.ID,
				utils.GetPanicRecoveryError(r, debug.Stack()))
		}
	}()

	hooksFiredTotal.WithLabelValues(c.name, listener.State, kind).Inc()
	c.logger.HookFired(ctx, c.name, listener.State, kind, listener.ID)

	listener.hook(ctx, args...)

	return nil
}
