package csync

import (
	"context"
	"fmt"
	"sync"
)

// Event manages a flag that can be set with Set() and reset with Clear().
// Goroutines calling Wait() block until the flag is set.
//
// The zero value for an Event is an unset event.
type Event struct {
	mu      sync.Mutex
	value   bool
	waiters list
}

// IsSet reports whether the flag is set.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Set sets the flag and wakes all goroutines waiting for it. Goroutines
// calling Wait() after that do not block at all.
// Set of already set event is a no-op.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.value {
		return
	}
	e.value = true
	e.waiters.resolveAll()
}

// Clear resets the flag. Goroutines already woken by previous Set() are not
// affected.
func (e *Event) Clear() {
	e.mu.Lock()
	e.value = false
	e.mu.Unlock()
}

// Wait blocks until the flag is set. It returns immediately if the flag is
// set on entry.
//
// Wait() returns ErrCanceled if ctx is done before the flag is set.
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.value {
		e.mu.Unlock()
		return nil
	}
	w := e.waiters.push(ctx)
	e.mu.Unlock()

	ok := w.await(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.waiters.remove(w)
	if ok || w.cancel() {
		// Set() resolved us before we noticed the cancellation.
		return nil
	}
	return ErrCanceled
}

func (e *Event) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := "unset"
	if e.value {
		s = "set"
	}
	if n := e.waiters.len(); n > 0 {
		s = fmt.Sprintf("%s, waiters:%d", s, n)
	}
	return "[" + s + "]"
}
