//go:build unix

package spawn

import (
	"encoding/gob"
	"os"

	"golang.org/x/sys/unix"

	"github.com/randomizedcoder/go-linux-launcher/internal/logging"
)

// Init turns the current process into the target of a pending launch
// when it was started as a launcher child. In that case it never
// returns: the image is replaced, or the process exits with
// ExitExecFailed. Otherwise it returns immediately.
func Init() {
	if len(os.Args) == 0 || os.Args[0] != TrampolineName {
		return
	}
	os.Exit(trampoline())
}

// trampoline returns only when the exec failed.
func trampoline() int {
	f := os.NewFile(payloadFD, "launcher-payload")
	var p payload
	var decodeErr error
	if f == nil {
		decodeErr = os.ErrInvalid
	} else {
		decodeErr = gob.NewDecoder(f).Decode(&p)
		f.Close()
	}

	format := p.LogFormat
	if format == "" {
		format = "json"
	}
	logger := logging.NewSinkLogger(p.LogSink, format, p.LogLevel, false)

	if decodeErr != nil {
		logger.Error("payload_read_failed", "pid", os.Getpid(), "error", decodeErr)
		return ExitExecFailed
	}

	logger.Info("exec_replacing", "binary", p.Path, "argc", len(p.Argv), "pid", os.Getpid())

	err := unix.Exec(p.Path, p.Argv, p.Env)

	logger.Error("exec_failed", "binary", p.Path, "pid", os.Getpid(), "error", err)
	return ExitExecFailed
}
