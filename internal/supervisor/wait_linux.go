//go:build linux

package supervisor

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// waitTerminated blocks until pid has terminated, leaving it unreaped.
func waitTerminated(pid int) error {
	var info unix.Siginfo
	for {
		err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOWAIT, nil)
		if err != unix.EINTR {
			return err
		}
	}
}

// reap collects the status of a terminated pid.
func reap(pid int) (Result, error) {
	var ws unix.WaitStatus
	var ru unix.Rusage
	for {
		_, err := unix.Wait4(pid, &ws, 0, &ru)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		break
	}
	if !ws.Exited() && !ws.Signaled() {
		return Result{}, fmt.Errorf("unexpected wait status %#x", uint32(ws))
	}
	return ResultFromStatus(ws, &ru), nil
}

func kill(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

// ResultFromStatus normalizes a raw wait status. ru may be nil.
func ResultFromStatus(ws unix.WaitStatus, ru *unix.Rusage) Result {
	var res Result
	if ws.Signaled() {
		res = Killed(ws.Signal())
		res.CoreDumped = ws.CoreDump()
	} else {
		res = Exited(ws.ExitStatus())
	}

	if ru != nil {
		res.UserTime = time.Duration(ru.Utime.Nano())
		res.SystemTime = time.Duration(ru.Stime.Nano())
		res.MaxRSS = int64(ru.Maxrss)
	}
	return res
}
