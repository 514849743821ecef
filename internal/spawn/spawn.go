// Package spawn starts a binary as a new OS process without a command
// interpreter, either directly or through an explicit dynamic linker.
//
// Go cannot run arbitrary code between fork and exec, so the child side
// is a re-exec of the launcher's own executable. The parent forks
// itself with argv[0] set to TrampolineName and hands the target over a
// pipe on fd 3. The child replaces its image with the target, or logs
// the failure and exits with ExitExecFailed. Programs using this package
// must call Init first thing in main (and in TestMain).
package spawn

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/randomizedcoder/go-linux-launcher/internal/logging"
)

const (
	// InvalidPID is returned when no process could be created.
	InvalidPID = -1

	// ExitExecFailed is the exit status of a child whose image
	// replacement failed.
	ExitExecFailed = 127

	// TrampolineName is argv[0] of a launcher child before exec.
	TrampolineName = "linux-launcher-exec"

	// LibraryPathFlag is the dynamic linker option naming the search path.
	LibraryPathFlag = "--library-path"

	// payloadFD is where the child finds the encoded payload.
	payloadFD = 3
)

// ErrUnsupported is returned on platforms without fork/exec.
var ErrUnsupported = errors.ErrUnsupported

// Stdio selects the child's standard streams. Nil entries inherit the
// caller's own stdin, stdout or stderr.
type Stdio struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Request describes a direct launch.
type Request struct {
	// Path is the executable that replaces the child image.
	Path string
	// Argv is the complete argument vector, conventionally with the
	// program name first.
	Argv []string
	// Env is the complete environment as KEY=VALUE entries. It is not
	// merged with the caller's environment.
	Env []string

	Stdio Stdio

	// NewProcessGroup puts the child in its own process group.
	NewProcessGroup bool

	// ControllingTerminal starts the child in a new session with its
	// stdin as the controlling terminal. It implies a new process group.
	ControllingTerminal bool
}

// LinkerRequest describes a launch through an explicit dynamic linker.
// Request.Argv holds the arguments that follow the binary path.
type LinkerRequest struct {
	Linker      string
	LibraryPath string
	Request
}

// CreationError reports that no child process could be created.
type CreationError struct {
	Path string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create process for %s: %v", e.Path, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// payload is everything the trampoline child needs to exec the target.
type payload struct {
	Path      string
	Argv      []string
	Env       []string
	LogSink   string
	LogFormat string
	LogLevel  string
}

// Options configures a Spawner.
type Options struct {
	Logger *slog.Logger

	// Executable is re-executed as the child trampoline. Defaults to
	// os.Executable().
	Executable string

	// Log settings forwarded to the child for its own diagnostics.
	LogSink   string
	LogFormat string
	LogLevel  string
}

// Spawner creates launcher children. It holds no per-process state and is
// safe for concurrent use.
type Spawner struct {
	exe    string
	logger *slog.Logger

	logSink   string
	logFormat string
	logLevel  string
}

// New creates a Spawner.
func New(opts Options) (*Spawner, error) {
	exe := opts.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve launcher executable: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := opts.LogSink
	if sink == "" {
		sink = logging.SinkStderr
	}

	return &Spawner{
		exe:       exe,
		logger:    logger,
		logSink:   sink,
		logFormat: opts.LogFormat,
		logLevel:  opts.LogLevel,
	}, nil
}

// Executable returns the path re-executed as the child trampoline.
func (s *Spawner) Executable() string {
	return s.exe
}

// Launch creates one process whose image is replaced by req.Path.
// It returns the child pid, or InvalidPID and a *CreationError. A target
// that cannot be executed still yields a valid pid; the child then exits
// with ExitExecFailed.
func (s *Spawner) Launch(req Request) (int, error) {
	p := s.newPayload(req.Path, slices.Clone(req.Argv), req.Env)

	s.logger.Info("launch_started",
		"mode", "direct",
		"binary", req.Path,
		"argv", p.Argv,
		"env_count", len(p.Env),
	)

	return s.start(p, req)
}

// LaunchViaLinker creates one process whose image is replaced by
// req.Linker, invoked as
// [Linker, "--library-path", LibraryPath, Path, Argv...].
func (s *Spawner) LaunchViaLinker(req LinkerRequest) (int, error) {
	argv := LinkerArgv(req.Linker, req.LibraryPath, req.Path, req.Argv)
	p := s.newPayload(req.Linker, argv, req.Env)

	s.logger.Info("launch_started",
		"mode", "linker",
		"linker", req.Linker,
		"library_path", req.LibraryPath,
		"binary", req.Path,
		"argv", argv,
		"env_count", len(p.Env),
	)

	return s.start(p, req.Request)
}

func (s *Spawner) newPayload(path string, argv, env []string) payload {
	if argv == nil {
		argv = []string{}
	}
	envCopy := slices.Clone(env)
	if envCopy == nil {
		envCopy = []string{}
	}
	return payload{
		Path:      path,
		Argv:      argv,
		Env:       envCopy,
		LogSink:   s.logSink,
		LogFormat: s.logFormat,
		LogLevel:  s.logLevel,
	}
}

// LinkerArgv synthesizes the argument vector of a linker-indirected
// launch. The result never aliases extra.
func LinkerArgv(linker, libraryPath, binary string, extra []string) []string {
	argv := make([]string, 0, 4+len(extra))
	argv = append(argv, linker, LibraryPathFlag, libraryPath, binary)
	return append(argv, extra...)
}
