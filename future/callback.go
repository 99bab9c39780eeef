package future

import (
	"context"
	"runtime/debug"

	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/utils"
)

// invokeCallback runs callback on its own goroutine; a panic is logged, not propagated.
func invokeCallback[T any](kind string, callback func(T), value T) {
	if callback == nil {
		return
	}

	go func() {
		defer func() {
			if err := utils.GetPanicRecoveryError(recover(), debug.Stack()); err != nil {
				logger.Get().Error("panic encountered in future."+kind+" callback", "error", err)
			}
		}()

		callback(value)
	}()
}

// invokeCallbackContext is invokeCallback for callbacks taking a context. The
// callback gets a child context canceled when it returns.
func invokeCallbackContext[T any](ctx context.Context, kind string, callback func(context.Context, T), value T) {
	if callback == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		defer func() {
			if err := utils.GetPanicRecoveryError(recover(), debug.Stack()); err != nil {
				logger.Get(cctx).Error("panic encountered in future."+kind+" callback", "error", err)
			}
		}()

		callback(cctx, value)
	}()
}
