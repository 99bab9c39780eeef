// Package bgworker runs short background jobs on a shared, bounded worker pool.
package bgworker

import (
	"log/slog"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/envconfig"
	"github.com/amp-labs/amp-fsm/lazy"
	"github.com/amp-labs/amp-fsm/shutdown"
)

const defaultWorkerCount = 10

// Config sizes the pool.
type Config struct {
	Workers int `env:"BACKGROUND_WORKER_COUNT" envDefault:"10"`
}

var workerPool = lazy.New(func() pond.Pool { //nolint:gochecknoglobals
	count := defaultWorkerCount

	cfg, err := envconfig.Parse[Config]()
	if err != nil {
		slog.Warn("Invalid background worker configuration, using default", "error", err, "count", count)
	} else if cfg.Workers > 0 {
		count = cfg.Workers
	}

	slog.Debug("Initializing background worker pool", "count", count)

	pool := pond.NewPool(count)

	shutdown.BeforeShutdown(func() {
		slog.Debug("Stopping background worker pool")
		pool.StopAndWait()
	})

	return pool
})

// Submit queues f and returns a task that can be waited on.
func Submit(f func()) pond.Task { //nolint:ireturn
	return workerPool.Get().Submit(f)
}

// Go queues f without a handle. It fails once the pool has been stopped.
func Go(f func()) error {
	return workerPool.Get().Go(f)
}

// Stop waits for queued jobs to finish and rejects new ones. It is also
// registered with shutdown.BeforeShutdown when the pool is created.
func Stop() {
	slog.Debug("Stopping background worker pool")
	workerPool.Get().StopAndWait()
	slog.Debug("Background worker pool stopped")
}
