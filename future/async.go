package future

import (
	"context"

	"github.com/amp-labs/amp-fsm/logger"
)

// Async runs f on a goroutine without waiting for it. Panics are recovered
// and logged.
func Async(f func()) {
	AsyncWithError(func() error {
		f()

		return nil
	})
}

// AsyncWithError is Async for functions that can fail; errors are logged.
func AsyncWithError(f func() error) {
	fut := Go(func() (struct{}, error) {
		return struct{}{}, f()
	})

	fut.OnError(func(err error) {
		logger.Get().Error("future.Async", "error", err)
	})
}

// AsyncContext runs f on a goroutine with a context derived from ctx.
func AsyncContext(ctx context.Context, f func(ctx context.Context)) {
	AsyncContextWithError(ctx, func(ctx context.Context) error {
		f(ctx)

		return nil
	})
}

// AsyncContextWithError is AsyncContext for functions that can fail; errors
// are logged with the context's logger attributes.
func AsyncContextWithError(ctx context.Context, f func(ctx context.Context) error) {
	fut := GoContext(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	})

	fut.OnErrorContext(ctx, func(ctx context.Context, err error) {
		logger.Get(ctx).Error("future.AsyncContext", "error", err)
	})
}
