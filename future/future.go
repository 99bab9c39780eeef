// Package future provides a typed, single-assignment asynchronous result.
//
// A Future is the read side and a Promise the write side of one computation.
// A future is completed exactly once, either with a value or with an error,
// and any number of goroutines may wait on it. Futures that are created
// already completed (Successful, Failed, Completed) let synchronous code hand
// out the same type as asynchronous code without spawning goroutines.
package future

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	fsmErrors "github.com/amp-labs/amp-fsm/errors"
	"github.com/amp-labs/amp-fsm/try"
	"github.com/amp-labs/amp-fsm/utils"
	"go.uber.org/atomic"
)

// ErrCanceled is the failure recorded by Future.Cancel. It matches
// context.Canceled.
var ErrCanceled = fmt.Errorf("future canceled: %w", context.Canceled)

type ctxCallback[V any] struct {
	Context  context.Context //nolint:containedctx
	Callback func(context.Context, V)
}

// Future is the read-only side of an asynchronous computation.
type Future[T any] struct {
	once        sync.Once
	result      try.Try[T]
	resultReady chan struct{}

	mu                  sync.Mutex
	successCallbacks    []func(T)
	errorCallbacks      []func(error)
	resultCallbacks     []func(try.Try[T])
	successCtxCallbacks []ctxCallback[T]
	errorCtxCallbacks   []ctxCallback[error]
	resultCtxCallbacks  []ctxCallback[try.Try[T]]

	promise *Promise[T]
}

// New returns a pending future and the promise that completes it.
func New[T any](cancelFuncs ...func()) (*Future[T], *Promise[T]) {
	fut := &Future[T]{
		resultReady: make(chan struct{}),
	}

	promise := &Promise[T]{
		future:      fut,
		canceled:    atomic.NewBool(false),
		cancelFuncs: cancelFuncs,
	}

	fut.promise = promise

	return fut, promise
}

// Completed returns a future that is already done with (value, err).
func Completed[T any](value T, err error) *Future[T] {
	fut, promise := New[T]()
	promise.Complete(value, err)

	return fut
}

// Successful returns a future already completed with value.
func Successful[T any](value T) *Future[T] {
	return Completed(value, nil)
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	var zero T

	return Completed(zero, err)
}

// Go runs fn on a new goroutine. A panic inside fn fails the future with an
// error wrapping errors.ErrPanicRecovery.
func Go[T any](fn func() (T, error)) *Future[T] {
	fut, promise := New[T]()

	go func() {
		promise.Complete(safeRun(fn))
	}()

	return fut
}

// GoContext runs fn on a new goroutine with a context derived from ctx. The
// derived context is canceled once fn returns or the future is canceled.
func GoContext[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithCancel(ctx)
	fut, promise := New[T](cancel)

	go func() {
		defer cancel()

		promise.Complete(safeRun(func() (T, error) {
			return fn(cctx)
		}))
	}()

	return fut
}

func safeRun[T any](fn func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T

			value = zero
			err = utils.GetPanicRecoveryError(r, debug.Stack())
		}
	}()

	return fn()
}

// IsDone reports whether the future has been completed.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.resultReady:
		return true
	default:
		return false
	}
}

// Await blocks until the future completes.
func (f *Future[T]) Await() (T, error) { //nolint:ireturn
	<-f.resultReady

	return f.result.Get()
}

// AwaitContext blocks until the future completes or ctx is done, whichever
// comes first. A completed future always wins over a done context.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) { //nolint:ireturn
	if f.IsDone() {
		return f.result.Get()
	}

	select {
	case <-f.resultReady:
		return f.result.Get()
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Cancel fails a pending future with ErrCanceled and runs the producer's
// cancel functions. It has no effect on a completed future.
func (f *Future[T]) Cancel() {
	if f.IsDone() {
		return
	}

	f.promise.cancel()
	f.promise.Failure(ErrCanceled)
}

// ToChannel delivers the result on a buffered channel once available.
func (f *Future[T]) ToChannel() <-chan try.Try[T] {
	ch := make(chan try.Try[T], 1)

	go func() {
		<-f.resultReady

		ch <- f.result
		close(ch)
	}()

	return ch
}

// OnSuccess registers a callback run (on its own goroutine) with the value
// if the future succeeds. Registering on a completed future fires immediately.
func (f *Future[T]) OnSuccess(callback func(T)) {
	if f.register(func() { f.successCallbacks = append(f.successCallbacks, callback) }) {
		return
	}

	if f.result.IsSuccess() {
		invokeCallback("OnSuccess", callback, f.result.Value)
	}
}

// OnError registers a callback run with the error if the future fails.
func (f *Future[T]) OnError(callback func(error)) {
	if f.register(func() { f.errorCallbacks = append(f.errorCallbacks, callback) }) {
		return
	}

	if f.result.IsFailure() {
		invokeCallback("OnError", callback, f.result.Error)
	}
}

// OnResult registers a callback run with the outcome either way.
func (f *Future[T]) OnResult(callback func(try.Try[T])) {
	if f.register(func() { f.resultCallbacks = append(f.resultCallbacks, callback) }) {
		return
	}

	invokeCallback("OnResult", callback, f.result)
}

// OnSuccessContext is OnSuccess with a context handed to the callback.
func (f *Future[T]) OnSuccessContext(ctx context.Context, callback func(context.Context, T)) {
	entry := ctxCallback[T]{Context: ctx, Callback: callback}
	if f.register(func() { f.successCtxCallbacks = append(f.successCtxCallbacks, entry) }) {
		return
	}

	if f.result.IsSuccess() {
		invokeCallbackContext(ctx, "OnSuccessContext", callback, f.result.Value)
	}
}

// OnErrorContext is OnError with a context handed to the callback.
func (f *Future[T]) OnErrorContext(ctx context.Context, callback func(context.Context, error)) {
	entry := ctxCallback[error]{Context: ctx, Callback: callback}
	if f.register(func() { f.errorCtxCallbacks = append(f.errorCtxCallbacks, entry) }) {
		return
	}

	if f.result.IsFailure() {
		invokeCallbackContext(ctx, "OnErrorContext", callback, f.result.Error)
	}
}

// OnResultContext is OnResult with a context handed to the callback.
func (f *Future[T]) OnResultContext(ctx context.Context, callback func(context.Context, try.Try[T])) {
	entry := ctxCallback[try.Try[T]]{Context: ctx, Callback: callback}
	if f.register(func() { f.resultCtxCallbacks = append(f.resultCtxCallbacks, entry) }) {
		return
	}

	invokeCallbackContext(ctx, "OnResultContext", callback, f.result)
}

// register runs add under the lock while the future is still pending and
// reports whether it did. The promise collects callbacks under the same lock,
// so a callback is either queued or sees the completed result, never neither.
func (f *Future[T]) register(add func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.IsDone() {
		return false
	}

	add()

	return true
}

// Map transforms a successful value. Failures propagate unchanged.
func Map[T, U any](fut *Future[T], fn func(T) (U, error)) *Future[U] {
	return Then(fut, func(value T, err error) *Future[U] {
		if err != nil {
			return Failed[U](err)
		}

		mapped, mapErr := safeRun(func() (U, error) { return fn(value) })

		return Completed(mapped, mapErr)
	})
}

// Then chains fn onto fut. When fut is already complete, fn runs inline on the
// caller's goroutine and its future is returned as is; otherwise fn runs on a
// new goroutine once fut completes.
func Then[T, U any](fut *Future[T], fn func(T, error) *Future[U]) *Future[U] {
	return ThenContext(context.Background(), fut, fn)
}

// ThenContext is Then where waiting for a pending fut is bounded by ctx. If ctx
// ends first, fn receives ctx.Err(). Canceling the returned future while fn's
// future is still pending cancels that future too.
func ThenContext[T, U any](ctx context.Context, fut *Future[T], fn func(T, error) *Future[U]) *Future[U] {
	if fut.IsDone() {
		return chain(fn, fut.result.Value, fut.result.Error)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	return GoContext(ctx, func(cctx context.Context) (U, error) {
		value, err := fut.AwaitContext(cctx)

		next := chain(fn, value, err)

		// ctx ending already reached fn; only Cancel is forwarded.
		stop := context.AfterFunc(cctx, func() {
			if ctx.Err() == nil {
				next.Cancel()
			}
		})
		defer stop()

		return next.Await()
	})
}

func chain[T, U any](fn func(T, error) *Future[U], value T, err error) (next *Future[U]) {
	defer func() {
		if r := recover(); r != nil {
			next = Failed[U](utils.GetPanicRecoveryError(r, debug.Stack()))
		}
	}()

	next = fn(value, err)
	if next == nil {
		var zero U

		next = Successful(zero)
	}

	return next
}

// Combine waits for every future to settle. The values keep the input order;
// if any future failed, the result fails with all errors joined.
func Combine[T any](futures ...*Future[T]) *Future[[]T] {
	collect := func() ([]T, error) {
		values := make([]T, len(futures))

		var errs fsmErrors.Collection

		for i, fut := range futures {
			value, err := fut.Await()
			values[i] = value

			errs.Add(err)
		}

		if errs.HasError() {
			return nil, errs.GetError()
		}

		return values, nil
	}

	for _, fut := range futures {
		if !fut.IsDone() {
			return Go(collect)
		}
	}

	values, err := collect()

	return Completed(values, err)
}
