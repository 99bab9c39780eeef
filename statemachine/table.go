package statemachine

import (
	"context"
	"fmt"
	"hash"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/amp-labs/amp-fsm/bgworker"
	"github.com/amp-labs/amp-fsm/future"
	"github.com/amp-labs/amp-fsm/hashing"
	"github.com/amp-labs/amp-fsm/utils"
)

// GuardFunc vetoes a transition before it is handed to the controller.
// Returning false rejects the step; an error fails it.
type GuardFunc func(ctx context.Context, ev *EventData) (bool, error)

// TableOption configures a MemoryTable.
type TableOption func(*MemoryTable)

// WithGuard adds a guard for action. Guards of one action run in order on the
// background worker pool, which makes StepTo asynchronous for that action.
func WithGuard(action string, guard GuardFunc) TableOption {
	return func(t *MemoryTable) {
		t.guards[action] = append(t.guards[action], guard)
	}
}

// MemoryTable is the in-process Table built from a Config.
type MemoryTable struct {
	mu      sync.RWMutex
	current string

	initial     string
	name        string
	states      []string
	transitions []TransitionConfig
	allowSelf   bool
	guards      map[string][]GuardFunc
	fingerprint string
}

var _ Table = (*MemoryTable)(nil)

// NewTable validates cfg and builds a table positioned at cfg.InitialState.
func NewTable(cfg *Config, opts ...TableOption) (*MemoryTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	table := &MemoryTable{
		current:     cfg.InitialState,
		initial:     cfg.InitialState,
		name:        cfg.Name,
		states:      cfg.StateNames(),
		transitions: cloneTransitions(cfg.Transitions),
		allowSelf:   cfg.AllowSelfTransitions,
		guards:      make(map[string][]GuardFunc),
	}

	for _, opt := range opts {
		opt(table)
	}

	fingerprint, err := hashing.Xxh3(table)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint table: %w", err)
	}

	table.fingerprint = fingerprint

	return table, nil
}

func cloneTransitions(transitions []TransitionConfig) []TransitionConfig {
	cloned := make([]TransitionConfig, len(transitions))

	for i, transition := range transitions {
		cloned[i] = TransitionConfig{
			Name: transition.Name,
			From: slices.Clone(transition.From),
			To:   transition.To,
		}
	}

	return cloned
}

// UpdateHash feeds the normalized definition into h.
func (t *MemoryTable) UpdateHash(h hash.Hash) error {
	parts := hashing.HashableStrings{t.initial, t.name}
	parts = append(parts, t.states...)

	for _, transition := range t.transitions {
		parts = append(parts, transition.Name, strings.Join(transition.From, ","), transition.To)
	}

	if t.allowSelf {
		parts = append(parts, "allow-self")
	}

	return parts.UpdateHash(h)
}

// Fingerprint returns a stable hash of the table definition.
func (t *MemoryTable) Fingerprint() string {
	return t.fingerprint
}

func (t *MemoryTable) State() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.current
}

func (t *MemoryTable) States() []string {
	return slices.Clone(t.states)
}

// Methods returns the distinct actions legal from state, in definition order.
// An empty state means the current one.
func (t *MemoryTable) Methods(state string) []string {
	if state == "" {
		state = t.State()
	}

	var methods []string

	for _, transition := range t.transitions {
		if transition.From.Matches(state) && !slices.Contains(methods, transition.Name) {
			methods = append(methods, transition.Name)
		}
	}

	return methods
}

// StepTo resolves nil when no transition named action leaves the current
// state, or when it would leave the state unchanged and self transitions are
// not allowed. The table does not move until Commit.
func (t *MemoryTable) StepTo(ctx context.Context, action string, args ...any) *future.Future[*EventData] {
	current := t.State()

	transition, ok := t.find(action, current)
	if !ok {
		return future.Successful[*EventData](nil)
	}

	if transition.To == current && !t.allowSelf {
		return future.Successful[*EventData](nil)
	}

	ev := NewEventData(current, transition.To, action, args...)

	guards := t.guards[action]
	if len(guards) == 0 {
		return future.Successful(ev)
	}

	fut, promise := future.New[*EventData]()

	err := bgworker.Go(func() {
		promise.Complete(evaluateGuards(ctx, guards, ev))
	})
	if err != nil {
		return future.Failed[*EventData](fmt.Errorf("%w: %w", ErrGuardFailed, err))
	}

	return fut
}

func (t *MemoryTable) find(action, state string) (TransitionConfig, bool) {
	for _, transition := range t.transitions {
		if transition.Name == action && transition.From.Matches(state) {
			return transition, true
		}
	}

	return TransitionConfig{}, false
}

func evaluateGuards(ctx context.Context, guards []GuardFunc, ev *EventData) (result *EventData, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %w", ErrGuardFailed, utils.GetPanicRecoveryError(r, debug.Stack()))
		}
	}()

	for _, guard := range guards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		allowed, err := guard(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGuardFailed, err)
		}

		if !allowed {
			return nil, nil //nolint:nilnil
		}
	}

	return ev, nil
}

// Commit moves the table to ev.On if it is still in ev.Before.
func (t *MemoryTable) Commit(ev *EventData) error {
	if ev == nil {
		return ErrNilTransition
	}

	if !slices.Contains(t.states, ev.On) {
		return fmt.Errorf("%w: %s", ErrStateNotFound, ev.On)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != ev.Before {
		return fmt.Errorf("%w: expected %s, current state is %s", ErrStaleTransition, ev.Before, t.current)
	}

	t.current = ev.On

	return nil
}
