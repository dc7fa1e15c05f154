package csync

import (
	"context"
	"fmt"
	"sync/atomic"
)

type barrierState int32

const (
	barrierFilling barrierState = iota
	barrierDraining
	barrierResetting
	barrierBroken
)

func (s barrierState) String() string {
	switch s {
	case barrierFilling:
		return "filling"
	case barrierDraining:
		return "draining"
	case barrierResetting:
		return "resetting"
	case barrierBroken:
		return "broken"
	default:
		return fmt.Sprintf("barrierState(%d)", int32(s))
	}
}

// BarrierOption configures a Barrier.
type BarrierOption func(*Barrier)

// WithAction sets a function which is called by the last goroutine arrived
// at the barrier, right before all the waiting goroutines are released.
//
// If the action returns an error or panics, the barrier becomes broken.
func WithAction(action func(context.Context) error) BarrierOption {
	return func(b *Barrier) {
		b.action = action
	}
}

// Barrier makes a fixed number of goroutines wait for each other.
//
// Goroutines block in Wait() until the number of waiting goroutines reaches
// the number of parties, after what they all are released at once. Barrier is
// cyclic: it may be reused once all released goroutines have left Wait().
// Goroutines calling Wait() while previous cycle is draining block until it
// is done.
//
// Barrier must be created with NewBarrier().
type Barrier struct {
	parties int
	action  func(context.Context) error

	// cond notifies all goroutines in the barrier when state changes.
	cond Cond

	// State and counters are changed only with cond.L held, but may be read
	// without it.
	state atomic.Int32
	count atomic.Int32 // Number of goroutines inside the Wait() call.
	wait  atomic.Int32 // Number of goroutines waiting to be released.
	block atomic.Int32 // Number of goroutines waiting for draining to end.
}

// NewBarrier creates a barrier for the given number of parties.
// It panics if parties is less than one.
func NewBarrier(parties int, opts ...BarrierOption) *Barrier {
	if parties < 1 {
		usage("NewBarrier()", "parties must be > 0")
	}
	b := &Barrier{
		parties: parties,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Barrier) load() barrierState {
	return barrierState(b.state.Load())
}

func (b *Barrier) set(s barrierState) {
	b.state.Store(int32(s))
}

// Wait blocks until all parties have called Wait() on b.
//
// It returns an index of the caller's arrival within current cycle, from 0 to
// Parties()-1. If an action was given, the last arrived goroutine runs it
// before any other goroutine returns.
//
// Wait() returns ErrBrokenBarrier if b is broken, becomes broken or is reset
// while the caller is waiting. It returns ErrCanceled if ctx is done while
// caller is waiting; the barrier stays intact in that case and the caller is
// not counted as arrived anymore.
func (b *Barrier) Wait(ctx context.Context) (index int, err error) {
	if err := b.cond.Lock(ctx); err != nil {
		return 0, err
	}
	defer b.cond.Unlock()

	// Block while the barrier drains or resets.
	if err := b.enter(ctx); err != nil {
		return 0, err
	}

	index = int(b.count.Add(1)) - 1
	defer func() {
		b.count.Add(-1)
		b.exit()
	}()
	if index+1 == b.parties {
		err = b.release(ctx)
	} else {
		err = b.await(ctx)
	}
	if err != nil {
		return 0, err
	}
	return index, nil
}

// enter blocks until the barrier is ready for the caller.
func (b *Barrier) enter(ctx context.Context) error {
	b.block.Add(1)
	err := b.cond.WaitFor(ctx, func() bool {
		s := b.load()
		return s != barrierDraining && s != barrierResetting
	})
	b.block.Add(-1)
	if err != nil {
		return err
	}
	if b.load() == barrierBroken {
		return ErrBrokenBarrier
	}
	return nil
}

// release runs the action and releases all goroutines waiting in the
// barrier.
func (b *Barrier) release(ctx context.Context) (err error) {
	if b.action != nil {
		defer func() {
			if e := recover(); e != nil {
				b.breakLocked()
				panic(e)
			}
		}()
		if err = b.action(ctx); err != nil {
			b.breakLocked()
			return fmt.Errorf("csync: barrier action: %w", err)
		}
	}
	b.set(barrierDraining)
	b.cond.Broadcast()
	return nil
}

// await waits in the barrier until the caller is released.
func (b *Barrier) await(ctx context.Context) error {
	b.wait.Add(1)
	err := b.cond.WaitFor(ctx, func() bool {
		return b.load() != barrierFilling
	})
	b.wait.Add(-1)
	if err != nil {
		return err
	}
	if s := b.load(); s == barrierBroken || s == barrierResetting {
		return ErrBrokenBarrier
	}
	return nil
}

// exit wakes up goroutines waiting for the barrier to drain when the caller
// is the last one leaving it.
func (b *Barrier) exit() {
	if b.count.Load() != 0 {
		return
	}
	if s := b.load(); s == barrierDraining || s == barrierResetting {
		b.set(barrierFilling)
	}
	b.cond.Broadcast()
}

// Reset puts b into its initial state. Goroutines currently waiting in the
// barrier receive ErrBrokenBarrier.
//
// Reset() returns ErrCanceled if ctx is done before b's internal lock is
// taken.
func (b *Barrier) Reset(ctx context.Context) error {
	if err := b.cond.Lock(ctx); err != nil {
		return err
	}
	defer b.cond.Unlock()
	if b.count.Load() > 0 {
		if b.load() != barrierResetting {
			b.set(barrierResetting)
		}
	} else {
		b.set(barrierFilling)
	}
	b.cond.Broadcast()
	return nil
}

// Abort puts b into a broken state. Goroutines currently waiting in the
// barrier and goroutines calling Wait() after that receive ErrBrokenBarrier,
// until Reset() is called.
func (b *Barrier) Abort(ctx context.Context) error {
	if err := b.cond.Lock(ctx); err != nil {
		return err
	}
	defer b.cond.Unlock()
	b.breakLocked()
	return nil
}

func (b *Barrier) breakLocked() {
	b.set(barrierBroken)
	b.cond.Broadcast()
}

// Parties returns the number of goroutines required to pass the barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// NWaiting returns the number of goroutines waiting in the barrier while it
// is filling.
func (b *Barrier) NWaiting() int {
	if b.Filling() {
		return int(b.count.Load())
	}
	return 0
}

// NBlocking returns the number of goroutines blocked while the barrier is
// draining.
func (b *Barrier) NBlocking() int {
	if b.Draining() {
		return int(b.block.Load())
	}
	return 0
}

// Broken reports whether the barrier is broken.
func (b *Barrier) Broken() bool { return b.load() == barrierBroken }

// Draining reports whether the barrier releases its goroutines.
func (b *Barrier) Draining() bool { return b.load() == barrierDraining }

// Filling reports whether the barrier waits for goroutines to arrive.
func (b *Barrier) Filling() bool { return b.load() == barrierFilling }

// Resetting reports whether the barrier is being reset.
func (b *Barrier) Resetting() bool { return b.load() == barrierResetting }

func (b *Barrier) String() string {
	s := "unlocked"
	if b.cond.Locked() {
		s = "locked"
	}
	return fmt.Sprintf(
		"[%s, wait:%d/%d, block:%d/%d, state:%s]",
		s,
		b.wait.Load(), b.parties,
		b.block.Load(), b.parties,
		b.load(),
	)
}
