package statemachine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/future"
	"github.com/amp-labs/amp-fsm/try"
	"github.com/amp-labs/amp-fsm/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

// Step outcomes, used as metric labels and span attributes.
const (
	outcomeAccepted = "accepted"
	outcomeIllegal  = "illegal"
	outcomeBusy     = "busy"
	outcomeFailed   = "failed"
)

// Controller runs transitions against a Table. At most one transition is in
// flight at a time; a Step issued while another is pending is rejected, not
// queued.
type Controller struct {
	id           uuid.UUID
	name         string
	table        Table
	onTransition OnTransition
	hooks        *hookRegistry
	pending      atomic.Bool
	logger       Logger
	fingerprint  string
	actions      map[string]struct{}
}

// New builds a MemoryTable from cfg and a Controller on top of it.
func New(cfg *Config, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	options := applyOptions(opts)

	table, err := NewTable(cfg, options.tableOptions...)
	if err != nil {
		return nil, err
	}

	if options.name == "" {
		options.name = cfg.Name
	}

	return newController(table, options), nil
}

// NewWithTable builds a Controller for any Table implementation.
func NewWithTable(table Table, opts ...Option) (*Controller, error) {
	if table == nil {
		return nil, ErrNilTable
	}

	return newController(table, applyOptions(opts)), nil
}

func newController(table Table, options *controllerOptions) *Controller {
	ctrl := &Controller{
		id:           uuid.New(),
		name:         options.name,
		table:        table,
		onTransition: options.onTransition,
		hooks:        newHookRegistry(),
		logger:       options.logger,
	}

	if ctrl.name == "" {
		ctrl.name = defaultMachineName
	}

	if ctrl.logger == nil {
		ctrl.logger = NewDefaultLogger()
	}

	if fp, ok := table.(interface{ Fingerprint() string }); ok {
		ctrl.fingerprint = fp.Fingerprint()
	}

	ctrl.actions = make(map[string]struct{})

	for _, state := range table.States() {
		for _, action := range table.Methods(state) {
			ctrl.actions[action] = struct{}{}
		}
	}

	return ctrl
}

// metricAction keeps the action label bounded: actions the table does not
// define are all counted as unknownActionLabel.
func (c *Controller) metricAction(action string) string {
	if _, ok := c.actions[action]; ok {
		return action
	}

	return unknownActionLabel
}

// Name returns the machine name.
func (c *Controller) Name() string {
	return c.name
}

// ID identifies this controller instance in logs and spans.
func (c *Controller) ID() uuid.UUID {
	return c.id
}

// State returns the table's current state.
func (c *Controller) State() string {
	return c.table.State()
}

// States returns every state known to the table.
func (c *Controller) States() []string {
	return c.table.States()
}

// Methods returns the actions legal from state, or from the current state
// when none is given.
func (c *Controller) Methods(state ...string) []string {
	var from string
	if len(state) > 0 {
		from = state[0]
	}

	return c.table.Methods(from)
}

// Can reports whether action is legal from the current state.
func (c *Controller) Can(action string) bool {
	return slices.Contains(c.table.Methods(""), action)
}

// IsPending reports whether a step currently holds the lock.
func (c *Controller) IsPending() bool {
	return c.pending.Load()
}

// On registers a hook fired on every entry into state. It returns false and
// registers nothing when the table does not know state.
func (c *Controller) On(state string, hook Hook) (*Listener, bool) {
	return c.register(state, hookKindPersistent, hook)
}

// Once registers a hook fired on the next entry into state only.
func (c *Controller) Once(state string, hook Hook) (*Listener, bool) {
	return c.register(state, hookKindOnce, hook)
}

func (c *Controller) register(state, kind string, hook Hook) (*Listener, bool) {
	if hook == nil || !slices.Contains(c.table.States(), state) {
		return nil, false
	}

	return c.hooks.add(state, kind, hook), true
}

// Off removes listener from both the persistent and one-shot hooks of state.
// Unknown listeners are ignored.
func (c *Controller) Off(state string, listener *Listener) {
	if listener == nil {
		return
	}

	c.hooks.remove(state, listener)
}

// RemoveAllListeners drops every hook of the given states, or of all states
// when called without arguments.
func (c *Controller) RemoveAllListeners(states ...string) {
	c.hooks.clear(states...)
}

// ListenerCount returns the number of hooks registered for state.
func (c *Controller) ListenerCount(state string) int {
	return c.hooks.count(state)
}

// Do runs Step and waits for it.
func (c *Controller) Do(ctx context.Context, action string, args ...any) (*EventData, error) {
	return c.Step(ctx, action, args...).AwaitContext(ctx)
}

// Step requests action. The future resolves with the descriptor of the
// executed transition, or with nil when the action is illegal from the
// current state or another step is in flight. Failures of the table, the
// transition callback, the commit or a hook resolve it with a *StepError,
// and the lock is released before that happens.
//
// Stages that complete synchronously run on the caller's goroutine, so a
// fully synchronous step returns an already completed future.
//
// When ctx ends (or the returned future is canceled) while the transition
// callback is still running, the future fails with the context error at once,
// but the lock stays held until the callback returns. Its result is then
// discarded and nothing is committed.
func (c *Controller) Step(ctx context.Context, action string, args ...any) *future.Future[*EventData] {
	if ctx == nil {
		ctx = context.Background()
	}

	computed := c.table.StepTo(ctx, action, args...)
	if computed == nil {
		computed = future.Successful[*EventData](nil)
	}

	// The lock is checked before the table's answer is looked at, so a fast
	// computation cannot overtake a pending asynchronous step.
	if !c.pending.CompareAndSwap(false, true) {
		stepsTotal.WithLabelValues(c.name, c.metricAction(action), outcomeBusy).Inc()
		c.logger.StepRejected(ctx, c.name, action, outcomeBusy)

		return future.Successful[*EventData](nil)
	}

	run := &stepRun{
		controller: c,
		action:     action,
		args:       args,
		ctx:        ctx,
		start:      time.Now(),
	}

	return run.begin(computed)
}

// stepRun carries one step from lock acquisition to release.
type stepRun struct {
	controller *Controller
	action     string
	args       []any
	from       string
	start      time.Time

	ctx  context.Context //nolint:containedctx
	span trace.Span

	once sync.Once
}

// begin runs the setup of a step that holds the lock. A panic here releases
// the lock without going through the logger, which may be what panicked.
func (r *stepRun) begin(computed *future.Future[*EventData]) (result *future.Future[*EventData]) {
	defer func() {
		if rec := recover(); rec != nil {
			stepErr := &StepError{
				Action: r.action,
				State:  r.from,
				Err:    utils.GetPanicRecoveryError(rec, debug.Stack()),
			}

			r.finish(outcomeFailed, nil, stepErr)
			result = future.Failed[*EventData](stepErr)
		}
	}()

	ctrl := r.controller

	pendingSteps.WithLabelValues(ctrl.name).Set(1)

	r.from = ctrl.table.State()
	r.ctx, r.span = startStepSpan(r.ctx, ctrl, r.action)
	ctrl.logger.StepRequested(r.ctx, ctrl.name, r.action, r.from)

	return future.ThenContext(r.ctx, computed, r.transition)
}

func (r *stepRun) transition(ev *EventData, err error) (result *future.Future[*EventData]) {
	defer r.recoverInto(&result)

	if err != nil {
		return r.fail(err)
	}

	if ev == nil {
		r.controller.logger.StepRejected(r.ctx, r.controller.name, r.action, outcomeIllegal)
		r.finish(outcomeIllegal, nil, nil)

		return future.Successful[*EventData](nil)
	}

	dispatched := r.controller.onTransition.dispatch(r.ctx, ev)

	return future.ThenContext(r.ctx, dispatched, func(_ struct{}, err error) *future.Future[*EventData] {
		if !dispatched.IsDone() {
			return r.abandon(dispatched, err)
		}

		_, callbackErr := dispatched.Await()

		return r.complete(ev, callbackErr)
	})
}

// abandon fails the step for the caller while the transition callback is
// still running. The lock is released only once the callback settles, so a
// new step cannot start a second callback next to it.
func (r *stepRun) abandon(dispatched *future.Future[struct{}], err error) *future.Future[*EventData] {
	stepErr := &StepError{
		Action: r.action,
		State:  r.from,
		Err:    err,
	}

	r.controller.logger.StepFailed(r.ctx, r.controller.name, r.action, stepErr)

	dispatched.OnResult(func(try.Try[struct{}]) {
		r.finish(outcomeFailed, nil, stepErr)
	})

	return future.Failed[*EventData](stepErr)
}

func (r *stepRun) complete(ev *EventData, callbackErr error) (result *future.Future[*EventData]) {
	defer r.recoverInto(&result)

	if callbackErr != nil {
		if ctxErr := r.ctx.Err(); ctxErr != nil && errors.Is(callbackErr, ctxErr) {
			return r.fail(callbackErr)
		}

		return r.fail(WrapTransitionError(ev.Before, ev.On,
			fmt.Errorf("%w: %w", ErrTransitionCallbackFailed, callbackErr)))
	}

	ctrl := r.controller

	if err := ctrl.table.Commit(ev); err != nil {
		return r.fail(WrapTransitionError(ev.Before, ev.On, err))
	}

	transitionsTotal.WithLabelValues(ctrl.name, ev.Before, ev.On).Inc()
	ctrl.logger.TransitionExecuted(r.ctx, ctrl.name, ev)

	if err := ctrl.fireHooks(r.ctx, ev, r.args); err != nil {
		return r.fail(WrapTransitionError(ev.Before, ev.On, err))
	}

	r.finish(outcomeAccepted, ev, nil)

	return future.Successful(ev)
}

func (r *stepRun) fail(err error) *future.Future[*EventData] {
	stepErr := &StepError{
		Action: r.action,
		State:  r.from,
		Err:    err,
	}

	r.controller.logger.StepFailed(r.ctx, r.controller.name, r.action, stepErr)
	r.finish(outcomeFailed, nil, stepErr)

	return future.Failed[*EventData](stepErr)
}

// recoverInto turns a panic in a step stage into a failed step, so the lock
// is released on every exit path.
func (r *stepRun) recoverInto(result **future.Future[*EventData]) {
	if rec := recover(); rec != nil {
		*result = r.fail(utils.GetPanicRecoveryError(rec, debug.Stack()))
	}
}

// finish records the outcome and releases the lock. Only the first call
// counts. The lock is released last, even if recording panics.
func (r *stepRun) finish(outcome string, ev *EventData, err error) {
	r.once.Do(func() {
		ctrl := r.controller

		defer func() {
			pendingSteps.WithLabelValues(ctrl.name).Set(0)
			ctrl.pending.Store(false)
		}()

		stepsTotal.WithLabelValues(ctrl.name, ctrl.metricAction(r.action), outcome).Inc()
		stepDuration.WithLabelValues(ctrl.name, outcome).Observe(time.Since(r.start).Seconds())

		if r.span != nil {
			endStepSpan(r.ctx, r.span, outcome, ev, err)
		}
	})
}
