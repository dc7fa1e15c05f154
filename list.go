package csync

import (
	"context"

	"github.com/gammazero/deque"

	"github.com/gobwas/csync/internal/buildtags"
)

type waiterState uint8

const (
	waiterPending waiterState = iota
	waiterResolved
	waiterCancelled
)

// waiter is a single-resolution handle of a goroutine blocked inside one of
// the primitives.
//
// Its state is guarded by the mutex of the primitive owning the list the
// waiter is queued in.
type waiter struct {
	c     chan struct{}
	done  <-chan struct{}
	state waiterState

	// seq is the arrival number within the list. Used by debug hooks only.
	seq uint64
}

// cancelled reports whether w can no longer be resolved. Note that a pending
// waiter whose context is done but which has not yet unregistered itself is
// also treated as cancelled.
func (w *waiter) cancelled() bool {
	switch w.state {
	case waiterCancelled:
		return true
	case waiterResolved:
		return false
	}
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *waiter) resolved() bool {
	return w.state == waiterResolved
}

func (w *waiter) live() bool {
	return w.state == waiterPending && !w.cancelled()
}

// resolve makes the terminal transition of w into the resolved state. It
// returns false if w is not live.
func (w *waiter) resolve() bool {
	if !w.live() {
		return false
	}
	w.state = waiterResolved
	w.c <- struct{}{}
	return true
}

// cancel marks w as cancelled. It returns true if w was resolved before.
func (w *waiter) cancel() (wasResolved bool) {
	wasResolved = w.state == waiterResolved
	w.state = waiterCancelled
	return wasResolved
}

// await blocks until w is resolved or ctx is done. In the latter case the
// caller must take the owner's mutex and inspect w to find out whether a
// resolution raced with the cancellation.
func (w *waiter) await(ctx context.Context) bool {
	select {
	case <-w.c:
		return true
	case <-ctx.Done():
		return false
	}
}

// list is a FIFO list of waiters.
//
// list is not safe for concurrent use; every method must be called with the
// owning primitive's mutex held. Waiters stay in the list after resolution
// until the woken goroutine removes itself, so that a resolved but not yet
// resumed waiter is still visible to the owner.
type list struct {
	q   deque.Deque[*waiter]
	seq uint64

	// These hooks are called only if debug buildtag passed.
	hookInsert func(*waiter)
	hookNotify func(*waiter)
}

// push appends a new pending waiter bound to ctx.
func (l *list) push(ctx context.Context) *waiter {
	l.seq++
	w := &waiter{
		c:    make(chan struct{}, 1),
		done: ctx.Done(),
		seq:  l.seq,
	}
	l.q.PushBack(w)
	if buildtags.Debug {
		if hook := l.hookInsert; hook != nil {
			hook(w)
		}
	}
	return w
}

// remove removes w from the list. It is a no-op if w is not there.
func (l *list) remove(w *waiter) {
	if i := l.q.Index(func(x *waiter) bool { return x == w }); i >= 0 {
		l.q.Remove(i)
	}
}

func (l *list) len() int {
	return l.q.Len()
}

// live returns the number of live waiters.
func (l *list) live() (n int) {
	for i := 0; i < l.q.Len(); i++ {
		if l.q.At(i).live() {
			n++
		}
	}
	return n
}

// allCancelled reports whether every waiter in the list is cancelled. It is
// true for an empty list.
func (l *list) allCancelled() bool {
	for i := 0; i < l.q.Len(); i++ {
		if !l.q.At(i).cancelled() {
			return false
		}
	}
	return true
}

// resolveFirst resolves the earliest live waiter.
func (l *list) resolveFirst() bool {
	for i := 0; i < l.q.Len(); i++ {
		if w := l.q.At(i); w.live() {
			l.notify(w)
			return true
		}
	}
	return false
}

// handOff resolves the earliest live waiter unless a resolved waiter
// precedes it. A resolved waiter in front means that a previous hand-off is
// still in flight: that waiter either takes ownership when it resumes or
// calls handOff() again when it finds out it was cancelled.
func (l *list) handOff() bool {
	for i := 0; i < l.q.Len(); i++ {
		w := l.q.At(i)
		if w.resolved() {
			return false
		}
		if w.live() {
			l.notify(w)
			return true
		}
	}
	return false
}

// resolveN resolves up to n live waiters in arrival order. Waiters which are
// already done are skipped and not counted.
func (l *list) resolveN(n int) (resolved int) {
	for i := 0; i < l.q.Len() && resolved < n; i++ {
		if w := l.q.At(i); w.live() {
			l.notify(w)
			resolved++
		}
	}
	return resolved
}

func (l *list) resolveAll() int {
	return l.resolveN(l.q.Len())
}

func (l *list) notify(w *waiter) {
	w.resolve()
	if buildtags.Debug {
		if hook := l.hookNotify; hook != nil {
			hook(w)
		}
	}
}
