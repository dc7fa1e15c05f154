package csync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventWait(t *testing.T) {
	const n = 3

	var e Event
	assert.False(t, e.IsSet())

	result := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			result <- e.Wait(bg)
		}()
	}
	eventually(t, func() bool { return eventWaiters(&e) == n })
	assert.Equal(t, "[unset, waiters:3]", e.String())
	silent(t, result)

	e.Set()
	assert.True(t, e.IsSet())
	for i := 0; i < n; i++ {
		assert.NoError(t, receive(t, result))
	}
	assert.Equal(t, 0, eventWaiters(&e))
	assert.Equal(t, "[set]", e.String())
}

func TestEventWaitOnSet(t *testing.T) {
	var e Event
	e.Set()
	e.Set()
	for i := 0; i < 3; i++ {
		// Must not block even with canceled context.
		assert.NoError(t, e.Wait(canceled()))
	}
	assert.Equal(t, 0, eventWaiters(&e))
}

func TestEventWaitCancelation(t *testing.T) {
	var e Event
	ctx, cancel := context.WithCancel(bg)

	result := make(chan error, 1)
	go func() {
		result <- e.Wait(ctx)
	}()
	eventually(t, func() bool { return eventWaiters(&e) == 1 })

	cancel()
	assert.ErrorIs(t, receive(t, result), ErrCanceled)
	assert.Equal(t, 0, eventWaiters(&e))
	assert.False(t, e.IsSet())
}

func TestEventClear(t *testing.T) {
	var e Event
	e.Set()
	require.NoError(t, e.Wait(bg))

	e.Clear()
	assert.False(t, e.IsSet())

	result := make(chan error, 1)
	go func() {
		result <- e.Wait(bg)
	}()
	eventually(t, func() bool { return eventWaiters(&e) == 1 })
	silent(t, result)

	e.Set()
	assert.NoError(t, receive(t, result))
}

// TestEventClearWithWaiters checks that Clear() does not affect goroutines
// already woken up by Set().
func TestEventClearWithWaiters(t *testing.T) {
	var e Event

	result := make(chan error, 1)
	go func() {
		result <- e.Wait(bg)
	}()
	eventually(t, func() bool { return eventWaiters(&e) == 1 })

	e.Set()
	e.Clear()
	assert.False(t, e.IsSet())

	assert.NoError(t, receive(t, result))
	assert.Equal(t, 0, eventWaiters(&e))
}
