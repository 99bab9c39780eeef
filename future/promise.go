package future

import (
	"github.com/amp-labs/amp-fsm/try"
	"go.uber.org/atomic"
)

// Promise is the write side of a Future. Only the first completion counts;
// later calls to Success, Failure or Complete are ignored.
type Promise[T any] struct {
	future      *Future[T]
	canceled    *atomic.Bool
	cancelFuncs []func()
}

// IsCancelled reports whether the associated future was canceled.
func (p *Promise[T]) IsCancelled() bool {
	return p.canceled.Load()
}

func (p *Promise[T]) cancel() {
	if p.canceled.CompareAndSwap(false, true) {
		for _, cancel := range p.cancelFuncs {
			cancel()
		}
	}
}

// fulfill stores the result, wakes every waiter and hands the queued callbacks
// to their goroutines.
func (p *Promise[T]) fulfill(result try.Try[T]) {
	fut := p.future

	fut.once.Do(func() {
		fut.result = result

		fut.mu.Lock()

		close(fut.resultReady)

		successCallbacks := fut.successCallbacks
		errorCallbacks := fut.errorCallbacks
		resultCallbacks := fut.resultCallbacks
		successCtxCallbacks := fut.successCtxCallbacks
		errorCtxCallbacks := fut.errorCtxCallbacks
		resultCtxCallbacks := fut.resultCtxCallbacks

		fut.successCallbacks = nil
		fut.errorCallbacks = nil
		fut.resultCallbacks = nil
		fut.successCtxCallbacks = nil
		fut.errorCtxCallbacks = nil
		fut.resultCtxCallbacks = nil

		fut.mu.Unlock()

		for _, callback := range resultCallbacks {
			invokeCallback("OnResult", callback, result)
		}

		for _, cb := range resultCtxCallbacks {
			invokeCallbackContext(cb.Context, "OnResultContext", cb.Callback, result)
		}

		if result.IsSuccess() {
			for _, callback := range successCallbacks {
				invokeCallback("OnSuccess", callback, result.Value)
			}

			for _, cb := range successCtxCallbacks {
				invokeCallbackContext(cb.Context, "OnSuccessContext", cb.Callback, result.Value)
			}

			return
		}

		for _, callback := range errorCallbacks {
			invokeCallback("OnError", callback, result.Error)
		}

		for _, cb := range errorCtxCallbacks {
			invokeCallbackContext(cb.Context, "OnErrorContext", cb.Callback, result.Error)
		}
	})
}

// Success completes the future with value.
func (p *Promise[T]) Success(value T) {
	p.fulfill(try.Try[T]{Value: value})
}

// Failure completes the future with err and the zero value.
func (p *Promise[T]) Failure(err error) {
	var zero T

	p.fulfill(try.Try[T]{Value: zero, Error: err})
}

// Complete follows the (value, error) convention: a non-nil err wins.
func (p *Promise[T]) Complete(value T, err error) {
	if err != nil {
		p.Failure(err)
	} else {
		p.Success(value)
	}
}
