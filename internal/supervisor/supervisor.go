package supervisor

import (
	"log/slog"
	"slices"
	"sync"
	"syscall"
)

// Supervisor owns the handles of launcher children. It is safe for
// concurrent use; WaitFor blocks only its own caller.
type Supervisor struct {
	mu      sync.Mutex
	handles map[int]State
	logger  *slog.Logger
}

// New creates a Supervisor.
func New(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		handles: make(map[int]State),
		logger:  logger,
	}
}

// Track registers pid as a direct child owned by the caller.
func (s *Supervisor) Track(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles[pid].IsTracked() {
		return ErrAlreadyTracked
	}
	s.handles[pid] = StateRunning
	return nil
}

// State returns the handle state of pid.
func (s *Supervisor) State(pid int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[pid]
}

// Tracked returns the tracked pids in ascending order.
func (s *Supervisor) Tracked() []int {
	s.mu.Lock()
	pids := make([]int, 0, len(s.handles))
	for pid := range s.handles {
		pids = append(pids, pid)
	}
	s.mu.Unlock()

	slices.Sort(pids)
	return pids
}

// WaitFor blocks until the tracked child pid terminates, reaps it and
// returns its result. The handle is consumed: later calls for the same
// pid fail with ErrUnknownPID. There is no cancellation; signal the child
// to unblock a pending wait.
func (s *Supervisor) WaitFor(pid int) (Result, error) {
	s.mu.Lock()
	switch s.handles[pid] {
	case StateUnknown:
		s.mu.Unlock()
		s.logger.Error("wait_failed", "pid", pid, "error", ErrUnknownPID)
		return Result{}, &WaitError{PID: pid, Err: ErrUnknownPID}
	case StateWaiting:
		s.mu.Unlock()
		s.logger.Error("wait_failed", "pid", pid, "error", ErrWaitInProgress)
		return Result{}, &WaitError{PID: pid, Err: ErrWaitInProgress}
	}
	s.handles[pid] = StateWaiting
	s.mu.Unlock()

	// Block until the child is a zombie without reaping it, so the pid
	// cannot be recycled while Signal may still look at it.
	if err := waitTerminated(pid); err != nil {
		s.forget(pid)
		s.logger.Error("wait_failed", "pid", pid, "error", err)
		return Result{}, &WaitError{PID: pid, Err: err}
	}

	s.mu.Lock()
	delete(s.handles, pid)
	res, err := reap(pid)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("wait_failed", "pid", pid, "error", err)
		return Result{}, &WaitError{PID: pid, Err: err}
	}

	if res.Kind == KindKilled {
		s.logger.Info("process_killed", "pid", pid, "signal", int(res.Signal), "code", res.Code())
	} else {
		s.logger.Info("process_exited", "pid", pid, "code", res.Code())
	}
	return res, nil
}

// Signal delivers sig to the tracked child pid. It may race with a
// pending WaitFor; once the child is reaped it fails with ErrUnknownPID
// without reaching the OS.
func (s *Supervisor) Signal(pid int, sig syscall.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.handles[pid].IsTracked() {
		s.logger.Error("signal_failed", "pid", pid, "signal", int(sig), "error", ErrUnknownPID)
		return &SignalError{PID: pid, Signal: sig, Err: ErrUnknownPID}
	}

	if err := kill(pid, sig); err != nil {
		s.logger.Error("signal_failed", "pid", pid, "signal", int(sig), "error", err)
		return &SignalError{PID: pid, Signal: sig, Err: err}
	}

	s.logger.Info("signal_sent", "pid", pid, "signal", int(sig))
	return nil
}

func (s *Supervisor) forget(pid int) {
	s.mu.Lock()
	delete(s.handles, pid)
	s.mu.Unlock()
}
