//go:build unix

package spawn

import (
	"encoding/gob"
	"os"
	"syscall"
)

// start forks the trampoline and hands it the payload.
func (s *Spawner) start(p payload, req Request) (int, error) {
	stdio := req.Stdio
	r, w, err := os.Pipe()
	if err != nil {
		s.logger.Error("launch_failed", "binary", p.Path, "error", err)
		return InvalidPID, &CreationError{Path: p.Path, Err: err}
	}
	defer r.Close()

	attr := &syscall.ProcAttr{
		// The trampoline runs with an empty environment; p.Env is
		// applied by the exec itself.
		Env: []string{},
		Files: []uintptr{
			fdOr(stdio.Stdin, os.Stdin),
			fdOr(stdio.Stdout, os.Stdout),
			fdOr(stdio.Stderr, os.Stderr),
			r.Fd(),
		},
		Sys: sysProcAttr(req),
	}

	pid, err := syscall.ForkExec(s.exe, []string{TrampolineName}, attr)
	if err != nil {
		w.Close()
		s.logger.Error("launch_failed", "binary", p.Path, "trampoline", s.exe, "error", err)
		return InvalidPID, &CreationError{Path: p.Path, Err: err}
	}

	// A child that dies before reading reports through its exit status.
	if err := gob.NewEncoder(w).Encode(p); err != nil {
		s.logger.Error("payload_write_failed", "child_pid", pid, "error", err)
	}
	w.Close()

	s.logger.Info("launch_forked", "binary", p.Path, "child_pid", pid, "parent_pid", os.Getpid())
	return pid, nil
}

func sysProcAttr(req Request) *syscall.SysProcAttr {
	if req.ControllingTerminal {
		// Ctty is a descriptor number in the child: its stdin.
		return &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}
	}
	return &syscall.SysProcAttr{Setpgid: req.NewProcessGroup}
}

func fdOr(f, fallback *os.File) uintptr {
	if f != nil {
		return f.Fd()
	}
	return fallback.Fd()
}
