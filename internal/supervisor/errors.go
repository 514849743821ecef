package supervisor

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrUnknownPID is returned for pids that are not tracked.
	ErrUnknownPID = errors.New("pid is not a tracked child")

	// ErrWaitInProgress is returned when a second caller waits on a pid.
	ErrWaitInProgress = errors.New("wait already in progress")

	// ErrAlreadyTracked is returned when Track is called twice for a pid.
	ErrAlreadyTracked = errors.New("pid is already tracked")

	// ErrInvalidPID is returned for pids that can never name a child.
	ErrInvalidPID = errors.New("invalid pid")

	// ErrUnsupported is returned on platforms without waitid.
	ErrUnsupported = errors.ErrUnsupported
)

// WaitError reports that no termination result could be obtained.
type WaitError struct {
	PID int
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("wait for pid %d: %v", e.PID, e.Err)
}

func (e *WaitError) Unwrap() error {
	return e.Err
}

// SignalError reports a rejected signal delivery.
type SignalError struct {
	PID    int
	Signal syscall.Signal
	Err    error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("signal %d to pid %d: %v", int(e.Signal), e.PID, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}
