package csync

import (
	"errors"
)

// Errors returned by package structs.
var (
	ErrCanceled      = errors.New("csync: canceled")
	ErrBrokenBarrier = errors.New("csync: broken barrier")
)

// UsageError describes a misuse of a primitive such as unlocking an unlocked
// Mutex or releasing a bounded semaphore too many times.
//
// Usage errors are programming mistakes, so they are never returned. Instead
// they are raised as a panic with a *UsageError value.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	return "csync: " + e.Op + ": " + e.Msg
}

func usage(op, msg string) {
	panic(&UsageError{
		Op:  op,
		Msg: msg,
	})
}
