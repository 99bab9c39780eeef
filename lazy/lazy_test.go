package lazy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLazyInitializesOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	val := New(func() int {
		calls++

		return 42
	})

	assert.False(t, val.Initialized())

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.Equal(t, 42, val.Get())
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.True(t, val.Initialized())
}

func TestLazyRetriesAfterPanic(t *testing.T) {
	t.Parallel()

	fail := true
	val := New(func() string {
		if fail {
			panic("not yet")
		}

		return "ready"
	})

	assert.Panics(t, func() { val.Get() })
	assert.False(t, val.Initialized())

	fail = false

	assert.Equal(t, "ready", val.Get())
}

func TestLazySet(t *testing.T) {
	t.Parallel()

	val := New(func() string {
		t.Fatal("initializer must not run")

		return ""
	})

	val.Set("override")

	assert.Equal(t, "override", val.Get())
}
