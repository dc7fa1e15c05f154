package csync

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jacobsa/syncutil"
	"github.com/stretchr/testify/require"

	"github.com/gobwas/csync/internal/buildtags"
)

const debug = buildtags.Debug

func TestMain(m *testing.M) {
	// Crash on any broken invariant of the primitives under test.
	syncutil.EnableInvariantChecking()
	os.Exit(m.Run())
}

func skipWithoutDebug(t *testing.T) {
	if !debug {
		t.Skip("can run only with 'debug' build tag")
	}
}

var bg = context.Background()

// canceled returns already canceled context.
func canceled() context.Context {
	ctx, cancel := context.WithCancel(bg)
	cancel()
	return ctx
}

// eventually waits for cond to become true.
func eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond, msgAndArgs...)
}

// receive returns a value from ch or fails the test after a second.
func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("no result after 1s")
	}
	panic("unreachable")
}

// silent fails the test if ch receives anything during a short period.
func silent[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected receive: %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func mutexWaiters(m *Mutex) int {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters.len()
}

func condWaiters(c *Cond) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.len()
}

func eventWaiters(e *Event) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiters.len()
}

func semaphoreWaiters(s *Semaphore) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.len()
}
