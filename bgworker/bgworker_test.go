package bgworker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	t.Parallel()

	var counter atomic.Int32

	const numTasks = 10

	tasks := make([]interface{ Wait() error }, numTasks)

	for i := range numTasks {
		tasks[i] = Submit(func() {
			counter.Add(1)
		})
	}

	for _, task := range tasks {
		require.NoError(t, task.Wait())
	}

	assert.Equal(t, int32(numTasks), counter.Load())
}

func TestGo(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup

	wg.Add(1)

	require.NoError(t, Go(wg.Done))

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}
