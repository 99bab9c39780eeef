// Package lazy provides values that are computed on first use.
package lazy

import (
	"sync"
	"sync/atomic"
)

// Of is a lazy value that is initialized at most once. A panicking initializer
// leaves the value uninitialized so the next Get retries it.
type Of[T any] struct {
	mu          sync.Mutex
	create      func() T
	value       T
	initialized atomic.Bool
}

// New creates a lazy value; f runs on the first Get.
func New[T any](f func() T) *Of[T] {
	return &Of[T]{create: f}
}

// Get returns the value, initializing it if necessary.
func (t *Of[T]) Get() T { //nolint:ireturn
	if t.initialized.Load() {
		return t.value
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized.Load() {
		return t.value
	}

	if t.create != nil {
		t.value = t.create()
		t.create = nil
	}

	t.initialized.Store(true)

	return t.value
}

// Set replaces the value, skipping the initializer.
func (t *Of[T]) Set(value T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.create = nil
	t.value = value
	t.initialized.Store(true)
}

// Initialized reports whether the value has been computed or set. Meant for
// tests and debugging.
func (t *Of[T]) Initialized() bool {
	return t.initialized.Load()
}
