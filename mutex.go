package csync

import (
	"context"
	"fmt"
	"sync"

	"github.com/jacobsa/syncutil"
)

// A Mutex is a mutual exclusion lock with ability to be locked with
// cancellation. Goroutines blocked in Lock() acquire the mutex in the order
// of their arrival.
//
// Mutex does not track its owner: any goroutine may call Unlock() of a locked
// mutex. It is not reentrant either.
//
// The zero value for a Mutex is an unlocked mutex.
//
// A Mutex must not be copied after first use.
type Mutex struct {
	once sync.Once
	mu   syncutil.InvariantMutex

	// GUARDED_BY(mu)
	locked  bool
	waiters list
}

func (m *Mutex) init() {
	m.once.Do(func() {
		m.mu = syncutil.NewInvariantMutex(m.checkInvariants)
	})
}

func (m *Mutex) checkInvariants() {
	if m.locked {
		return
	}
	// An unlocked mutex can only have waiters if one of them is about to take
	// the lock, or all of them are about to leave.
	for i := 0; i < m.waiters.q.Len(); i++ {
		w := m.waiters.q.At(i)
		if w.resolved() {
			return
		}
		if !w.cancelled() {
			panic(fmt.Sprintf("csync: unlocked mutex with live waiter #%d", w.seq))
		}
	}
}

// Locked reports whether m is locked.
func (m *Mutex) Locked() bool {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// TryLock tries to lock m without blocking. It succeeds under the same
// conditions as the fast path of Lock().
func (m *Mutex) TryLock() bool {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked || !m.waiters.allCancelled() {
		return false
	}
	m.locked = true
	return true
}

// Lock locks m.
//
// If m is unlocked and there are no waiters (or all of them are canceled but
// not yet gone), Lock() returns immediately. Otherwise caller is queued and
// blocks until the lock is handed to it by Unlock().
//
// Unlike sync.Mutex Lock() can return before Unlock() if and only if given
// context is done. In that case returned err is ErrCanceled and m is not
// locked by the caller.
func (m *Mutex) Lock(ctx context.Context) error {
	m.init()

	m.mu.Lock()
	if !m.locked && m.waiters.allCancelled() {
		m.locked = true
		m.mu.Unlock()
		return nil
	}
	w := m.waiters.push(ctx)
	m.mu.Unlock()

	ok := w.await(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.waiters.remove(w)
	if ok {
		m.locked = true
		return nil
	}
	w.cancel()
	if !m.locked {
		// We could be the one the lock was handed to, or we could hold back
		// the queue while being canceled. Either way let the next one go.
		m.waiters.handOff()
	}
	return ErrCanceled
}

// Unlock unlocks m.
// It panics if m is not locked on entry to Unlock().
//
// If there are goroutines waiting in Lock(), the first live one is woken up.
// Note that m stays unlocked until that goroutine resumes.
func (m *Mutex) Unlock() {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		usage("Unlock()", "mutex is not locked")
	}
	m.locked = false
	m.waiters.handOff()
}

func (m *Mutex) String() string {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	s := "unlocked"
	if m.locked {
		s = "locked"
	}
	if n := m.waiters.len(); n > 0 {
		s = fmt.Sprintf("%s, waiters:%d", s, n)
	}
	return "[" + s + "]"
}
