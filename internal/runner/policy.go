package runner

import (
	"syscall"

	"github.com/randomizedcoder/go-linux-launcher/internal/config"
)

// ShouldRestart reports whether policy asks for another run after a child
// finished with the normalized exit code.
func ShouldRestart(policy string, code int) bool {
	switch policy {
	case config.RestartAlways:
		return true
	case config.RestartOnFailure:
		return code != 0
	default:
		return false
	}
}

// forwardedSignals are relayed from the launcher to the running child.
var forwardedSignals = []syscall.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
}

// stopsRestarts reports whether a forwarded signal also ends the restart
// loop. SIGHUP is passed through as a reload request.
func stopsRestarts(sig syscall.Signal) bool {
	return sig != syscall.SIGHUP
}
