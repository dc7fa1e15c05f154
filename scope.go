package csync

import (
	"context"
)

// Locker represents an object that can be locked with cancellation and
// unlocked.
type Locker interface {
	Lock(context.Context) error
	Unlock()
}

var (
	_ Locker = (*Mutex)(nil)
	_ Locker = (*Cond)(nil)
)

// Do locks l, calls fn and unlocks l after fn returns or panics.
// If l can not be locked due to ctx cancellation, fn is not called and
// ErrCanceled is returned.
func Do(ctx context.Context, l Locker, fn func() error) error {
	if err := l.Lock(ctx); err != nil {
		return err
	}
	defer l.Unlock()
	return fn()
}

// Do acquires a permit, calls fn and releases the permit after fn returns or
// panics.
func (s *Semaphore) Do(ctx context.Context, fn func() error) error {
	if err := s.Acquire(ctx); err != nil {
		return err
	}
	defer s.Release()
	return fn()
}
