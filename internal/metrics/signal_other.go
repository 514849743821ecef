//go:build !unix

package metrics

import (
	"strconv"
	"syscall"
)

// SignalLabel returns the signal number as a label value.
func SignalLabel(sig syscall.Signal) string {
	return strconv.Itoa(int(sig))
}
