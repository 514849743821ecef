// Package supervisor waits on launcher children and delivers signals to
// them. Only pids registered with Track are accepted; a handle is dropped
// the moment its process is reaped, so a pid recycled by the kernel is
// never signalled or waited on by mistake.
package supervisor

// State represents what the supervisor is doing with a tracked child.
type State int

const (
	// StateUnknown means the pid is not tracked, or was already reaped.
	StateUnknown State = iota

	// StateRunning means the child is tracked and nobody waits on it.
	StateRunning

	// StateWaiting means a WaitFor call is blocked on the child.
	StateWaiting
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	default:
		return "invalid"
	}
}

// IsTracked returns true if the pid is owned by the supervisor.
func (s State) IsTracked() bool {
	return s == StateRunning || s == StateWaiting
}
