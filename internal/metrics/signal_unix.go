//go:build unix

package metrics

import (
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// SignalLabel returns the signal name ("SIGTERM"), or its number when
// the name is unknown.
func SignalLabel(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return strconv.Itoa(int(sig))
}
