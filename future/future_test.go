package future

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	fsmErrors "github.com/amp-labs/amp-fsm/errors"
	"github.com/amp-labs/amp-fsm/try"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTest  = errors.New("test error")
	errOther = errors.New("other error")
)

func TestNew_Success(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()
	assert.False(t, fut.IsDone())

	go func() {
		promise.Success(42)
	}()

	result, err := fut.Await()

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.True(t, fut.IsDone())
}

func TestPromise_FirstCompletionWins(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()

	promise.Failure(errTest)
	promise.Success(7)
	promise.Complete(9, nil)

	result, err := fut.Await()

	require.ErrorIs(t, err, errTest)
	assert.Equal(t, 0, result)
}

func TestCompletedConstructors(t *testing.T) {
	t.Parallel()

	ok := Successful("done")
	assert.True(t, ok.IsDone())

	value, err := ok.Await()
	require.NoError(t, err)
	assert.Equal(t, "done", value)

	failed := Failed[string](errTest)
	assert.True(t, failed.IsDone())

	_, err = failed.Await()
	require.ErrorIs(t, err, errTest)
}

func TestGo_RecoversPanic(t *testing.T) {
	t.Parallel()

	fut := Go(func() (int, error) {
		panic("kaboom")
	})

	_, err := fut.Await()

	require.ErrorIs(t, err, fsmErrors.ErrPanicRecovery)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestGoContext_CancelStopsProducer(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	stopped := make(chan struct{})

	fut := GoContext(t.Context(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		close(stopped)

		return 0, ctx.Err()
	})

	<-started
	fut.Cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer context was not canceled")
	}

	_, err := fut.Await()
	require.ErrorIs(t, err, ErrCanceled)
	assert.True(t, fut.promise.IsCancelled())
}

func TestAwaitContext(t *testing.T) {
	t.Parallel()

	t.Run("context ends first", func(t *testing.T) {
		t.Parallel()

		fut, _ := New[int]()

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
		defer cancel()

		_, err := fut.AwaitContext(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("completed future beats canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		value, err := Successful(3).AwaitContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, value)
	})
}

func TestThen_RunsInlineWhenDone(t *testing.T) {
	t.Parallel()

	ran := false

	next := Then(Successful(2), func(v int, err error) *Future[int] {
		ran = true

		return Successful(v * 10)
	})

	// No goroutine hop: the continuation already ran.
	assert.True(t, ran)
	assert.True(t, next.IsDone())

	value, err := next.Await()
	require.NoError(t, err)
	assert.Equal(t, 20, value)
}

func TestThen_WaitsForPending(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()

	next := Then(fut, func(v int, err error) *Future[string] {
		if err != nil {
			return Failed[string](err)
		}

		return Successful("ok")
	})

	assert.False(t, next.IsDone())

	promise.Failure(errTest)

	_, err := next.Await()
	require.ErrorIs(t, err, errTest)
}

func TestThenContext_PassesContextError(t *testing.T) {
	t.Parallel()

	fut, _ := New[int]()

	ctx, cancel := context.WithCancel(t.Context())

	var seen atomic.Value

	next := ThenContext(ctx, fut, func(_ int, err error) *Future[int] {
		seen.Store(err)

		return Failed[int](err)
	})

	cancel()

	_, err := next.Await()
	require.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, seen.Load().(error), context.Canceled) //nolint:forcetypeassert
}

func TestThenContext_CancelReachesContinuationFuture(t *testing.T) {
	t.Parallel()

	fut, _ := New[int]()
	inner, _ := New[int]()

	next := Then(fut, func(int, error) *Future[int] {
		return inner
	})

	next.Cancel()

	_, err := next.Await()
	require.ErrorIs(t, err, ErrCanceled)
	require.ErrorIs(t, err, context.Canceled)

	require.Eventually(t, inner.IsDone, time.Second, time.Millisecond)

	_, err = inner.Await()
	require.ErrorIs(t, err, ErrCanceled)
}

func TestThen_RecoversPanicInContinuation(t *testing.T) {
	t.Parallel()

	next := Then(Successful(1), func(int, error) *Future[int] {
		panic("bad continuation")
	})

	_, err := next.Await()
	require.ErrorIs(t, err, fsmErrors.ErrPanicRecovery)
}

func TestMap(t *testing.T) {
	t.Parallel()

	mapped := Map(Successful(21), func(v int) (int, error) {
		return v * 2, nil
	})

	value, err := mapped.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	_, err = Map(Failed[int](errTest), func(v int) (int, error) {
		t.Fatal("must not run on failure")

		return v, nil
	}).Await()
	require.ErrorIs(t, err, errTest)
}

func TestCombine(t *testing.T) {
	t.Parallel()

	t.Run("all done resolves inline", func(t *testing.T) {
		t.Parallel()

		combined := Combine(Successful(1), Successful(2))
		assert.True(t, combined.IsDone())

		values, err := combined.Await()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, values)
	})

	t.Run("waits for every future and joins errors", func(t *testing.T) {
		t.Parallel()

		slow, promise := New[int]()
		combined := Combine(Failed[int](errTest), slow)

		assert.False(t, combined.IsDone())

		promise.Failure(errOther)

		_, err := combined.Await()
		require.ErrorIs(t, err, errTest)
		require.ErrorIs(t, err, errOther)
	})
}

func TestCallbacks(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()

	success := make(chan int, 1)
	results := make(chan try.Try[int], 2)

	fut.OnSuccess(func(v int) { success <- v })
	fut.OnResult(func(r try.Try[int]) { results <- r })
	fut.OnError(func(error) { t.Error("OnError must not fire on success") })

	promise.Success(5)

	// Registered after completion: fires immediately.
	fut.OnResultContext(t.Context(), func(_ context.Context, r try.Try[int]) { results <- r })

	assert.Equal(t, 5, <-success)
	assert.Equal(t, 5, (<-results).Value)
	assert.Equal(t, 5, (<-results).Value)
}

func TestToChannel(t *testing.T) {
	t.Parallel()

	fut, promise := New[string]()
	ch := fut.ToChannel()

	promise.Success("value")

	result := <-ch
	require.NoError(t, result.Error)
	assert.Equal(t, "value", result.Value)
}
