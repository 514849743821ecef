package supervisor

import (
	"fmt"
	"syscall"
	"time"
)

// WaitFailed is the sentinel code reported when no termination result
// could be obtained.
const WaitFailed = -1

// Kind distinguishes normal exit from signal death.
type Kind int

const (
	// KindExited means the process ran to completion.
	KindExited Kind = iota

	// KindKilled means an uncaught signal terminated the process.
	KindKilled
)

func (k Kind) String() string {
	switch k {
	case KindExited:
		return "exited"
	case KindKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Result is the termination of one child.
type Result struct {
	Kind Kind

	// Status is the exit status (0-255) when Kind is KindExited.
	Status int

	// Signal is the terminating signal when Kind is KindKilled.
	Signal     syscall.Signal
	CoreDumped bool

	// Resource usage reported by the kernel at reap time.
	UserTime   time.Duration
	SystemTime time.Duration
	MaxRSS     int64 // kilobytes
}

// Exited builds the result of a normal exit.
func Exited(status int) Result {
	return Result{Kind: KindExited, Status: status & 0xff}
}

// Killed builds the result of a signal death.
func Killed(sig syscall.Signal) Result {
	return Result{Kind: KindKilled, Signal: sig}
}

// Code returns the normalized exit code: the exit status, or 128 plus
// the signal number.
func (r Result) Code() int {
	if r.Kind == KindKilled {
		return 128 + int(r.Signal)
	}
	return r.Status
}

// Success reports a zero exit status.
func (r Result) Success() bool {
	return r.Kind == KindExited && r.Status == 0
}

func (r Result) String() string {
	if r.Kind == KindKilled {
		s := fmt.Sprintf("killed by signal %d (%s)", int(r.Signal), r.Signal)
		if r.CoreDumped {
			s += ", core dumped"
		}
		return s
	}
	return fmt.Sprintf("exited with status %d", r.Status)
}
