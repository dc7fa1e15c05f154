package csync

import (
	"context"
	"fmt"

	"github.com/jacobsa/syncutil"
)

// Semaphore manages a counter of available permits. Acquire() takes a permit
// and blocks while there are none; Release() puts a permit back.
//
// Permits are handed to blocked goroutines in the order of their arrival.
// Semaphore must be created with NewSemaphore() or NewBoundedSemaphore().
type Semaphore struct {
	mu syncutil.InvariantMutex

	// Constant after construction.
	bound   int
	bounded bool

	// INVARIANT: value >= 0
	// INVARIANT: !bounded || value <= bound
	//
	// GUARDED_BY(mu)
	value   int
	waiters list
}

// NewSemaphore returns a semaphore with n permits available.
// It panics if n is negative.
func NewSemaphore(n int) *Semaphore {
	if n < 0 {
		usage("NewSemaphore()", "initial value must be >= 0")
	}
	s := &Semaphore{
		value: n,
	}
	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	return s
}

// NewBoundedSemaphore returns a semaphore with n permits available, which
// refuses to have more than n permits. That is, Release() panics when called
// more times than Acquire() succeeded.
//
// Note that a bounded semaphore with zero permits can never be released.
func NewBoundedSemaphore(n int) *Semaphore {
	s := NewSemaphore(n)
	s.bound = n
	s.bounded = true
	return s
}

func (s *Semaphore) checkInvariants() {
	if s.value < 0 {
		panic(fmt.Sprintf("csync: negative semaphore value: %d", s.value))
	}
	if s.bounded && s.value > s.bound {
		panic(fmt.Sprintf("csync: semaphore value %d exceeds bound %d", s.value, s.bound))
	}
}

// Locked reports whether Acquire() would block.
func (s *Semaphore) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value == 0
}

// Value returns the number of available permits.
func (s *Semaphore) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// TryAcquire takes a permit if it can be done without blocking.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.free() {
		return false
	}
	s.value--
	return true
}

// free reports whether a permit can be taken right away without overtaking
// any queued goroutine.
func (s *Semaphore) free() bool {
	return s.value > 0 && s.waiters.allCancelled()
}

// Acquire takes a permit, blocking until one is available.
//
// Acquire() returns ErrCanceled if ctx is done before a permit was received.
// In that case the caller holds no permit.
func (s *Semaphore) Acquire(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.free() {
		s.value--
		return nil
	}

	w := s.waiters.push(ctx)
	s.mu.Unlock()
	ok := w.await(ctx)
	s.mu.Lock()

	s.waiters.remove(w)
	if !ok {
		if w.cancel() {
			// Permit was transferred to us but we are not going to use it.
			s.value++
		}
		err = ErrCanceled
	}
	// Let others in if there are permits left. This is the case when we
	// returned the permit above, or when we blocked others while being
	// canceled.
	for s.value > 0 && s.wakeNext() {
	}
	return err
}

// Release puts a permit back and wakes the first goroutine waiting in
// Acquire(), if any.
//
// It panics if the semaphore is bounded and all permits are already
// released.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bounded && s.value >= s.bound {
		usage("Release()", "semaphore released too many times")
	}
	s.value++
	s.wakeNext()
}

// wakeNext transfers a permit to the first live waiter.
func (s *Semaphore) wakeNext() bool {
	if !s.waiters.resolveFirst() {
		return false
	}
	s.value--
	return true
}

func (s *Semaphore) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	str := "locked"
	if s.value > 0 {
		str = fmt.Sprintf("unlocked, value:%d", s.value)
	}
	if n := s.waiters.len(); n > 0 {
		str = fmt.Sprintf("%s, waiters:%d", str, n)
	}
	return "[" + str + "]"
}
