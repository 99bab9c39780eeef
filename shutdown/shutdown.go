// Package shutdown coordinates process teardown. Packages that own
// background resources (the worker pool, the trace exporter) register
// cleanup with BeforeShutdown; the application installs SetupHandler once.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []func()       //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before the shutdown
// context is canceled. Hooks run in reverse registration order, so a
// resource registered later (and possibly depending on an earlier one) is
// released first.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process programmatically. Without an
// installed handler it runs the hooks directly.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch == nil {
		cleanup()

		return
	}

	select {
	case ch <- os.Interrupt:
	default:
	}
}

// SetupHandler sets up a handler for SIGINT and SIGTERM and returns a
// context that is canceled after the hooks have run.
func SetupHandler() context.Context {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sig := <-ch

		signal.Stop(ch)
		slog.Warn("Received " + sig.String() + ", shutting down...")

		mut.Lock()
		channel = nil
		mut.Unlock()

		cleanup()
		cancel()
	}()

	return ctx
}

func cleanup() {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}
