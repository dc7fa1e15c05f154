/*
Package csync provides cancellable synchronization primitives such as mutex,
event, condition variable, semaphore and barrier.

Every blocking operation receives a context.Context and returns ErrCanceled
when the context is done before the operation completes. Primitives guarantee
that cancellation never leaves them in an inconsistent state: a lock or a
permit handed to a canceled goroutine is passed to the next one in line.
*/
package csync

import (
	"context"
	"fmt"
	"sync"
)

// Cond implements a condition variable with cancellable Wait().
//
// Each Cond has an associated Mutex L, which must be held when calling Wait(),
// Signal(), Notify() or Broadcast(). If L is nil on first use, Cond allocates
// its own mutex.
type Cond struct {
	// L is held while observing or changing the condition.
	L *Mutex

	once    sync.Once
	mu      sync.Mutex
	waiters list
}

// NewCond returns a new Cond with Mutex l. If l is nil, a new Mutex is used.
// Cond does not own given l; it may be shared with other conditions.
func NewCond(l *Mutex) *Cond {
	return &Cond{L: l}
}

func (c *Cond) locker() *Mutex {
	c.once.Do(func() {
		if c.L == nil {
			c.L = new(Mutex)
		}
	})
	return c.L
}

// Lock locks c.L.
func (c *Cond) Lock(ctx context.Context) error {
	return c.locker().Lock(ctx)
}

// Unlock unlocks c.L.
func (c *Cond) Unlock() {
	c.locker().Unlock()
}

// Locked reports whether c.L is locked.
func (c *Cond) Locked() bool {
	return c.locker().Locked()
}

// Wait unlocks c.L and suspends execution of the calling goroutine until
// awoken by Signal(), Notify() or Broadcast().
//
// Unlike sync.Cond Wait() can return before being awoken if and only if given
// context is done. In that case returned err is ErrCanceled.
//
// Wait() always locks c.L before returning, even when ctx is done. Re-locking
// c.L is not cancellable: if ctx is done while waiting for c.L, Wait() keeps
// waiting and returns ErrCanceled once c.L is locked. A notification received
// by a canceled Wait() is passed to the next waiting goroutine.
func (c *Cond) Wait(ctx context.Context) error {
	l := c.locker()
	if !l.Locked() {
		usage("Wait()", "mutex is not locked")
	}

	// Register under locked L to not miss notification sent right after L is
	// released.
	c.mu.Lock()
	w := c.waiters.push(ctx)
	c.mu.Unlock()

	l.Unlock()

	ok := w.await(ctx)

	c.mu.Lock()
	c.waiters.remove(w)
	notified := ok || w.cancel()
	c.mu.Unlock()

	if err := l.Lock(context.WithoutCancel(ctx)); err != nil {
		panic(fmt.Sprintf("csync: inconsistent cond state: %v", err))
	}
	if ctx.Err() == nil {
		return nil
	}
	if notified {
		c.mu.Lock()
		c.waiters.resolveFirst()
		c.mu.Unlock()
	}
	return ErrCanceled
}

// WaitFor calls Wait() until pred returns true. It checks pred before the
// first Wait() and returns immediately if it is already satisfied.
func (c *Cond) WaitFor(ctx context.Context, pred func() bool) error {
	for !pred() {
		if err := c.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Signal wakes one goroutine waiting on c, if there is any.
func (c *Cond) Signal() {
	c.notify("Signal()", 1)
}

// Notify wakes up to n goroutines waiting on c.
//
// Notified goroutines do not return from Wait() until they lock c.L; since
// Notify() does not unlock c.L, its caller should.
func (c *Cond) Notify(n int) {
	c.notify("Notify()", n)
}

// Broadcast wakes all goroutines waiting on c.
func (c *Cond) Broadcast() {
	c.notify("Broadcast()", -1)
}

func (c *Cond) notify(op string, n int) {
	if !c.locker().Locked() {
		usage(op, "mutex is not locked")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		c.waiters.resolveAll()
	} else {
		c.waiters.resolveN(n)
	}
}

func (c *Cond) String() string {
	s := "unlocked"
	if c.Locked() {
		s = "locked"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.waiters.len(); n > 0 {
		s = fmt.Sprintf("%s, waiters:%d", s, n)
	}
	return "[" + s + "]"
}
