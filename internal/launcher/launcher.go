// Package launcher exposes the four boundary operations of the launcher
// core: launch, launch via linker, wait and signal. The int/bool forms
// follow the sentinel contract (-1 for failure); the Start/Wait/Kill forms
// return the underlying errors.
package launcher

import (
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
	"github.com/randomizedcoder/go-linux-launcher/internal/supervisor"
)

// Launch modes reported to the Recorder.
const (
	ModeDirect = "direct"
	ModeLinker = "linker"
)

// Recorder observes launcher events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Launched(mode string)
	LaunchFailed(mode string)
	Exited(res supervisor.Result, lifetime time.Duration)
	Signalled(sig syscall.Signal, err error)
}

type nopRecorder struct{}

func (nopRecorder) Launched(string) {}
func (nopRecorder) LaunchFailed(string) {}
func (nopRecorder) Exited(supervisor.Result, time.Duration) {}
func (nopRecorder) Signalled(syscall.Signal, error) {}

// Options configures a Launcher.
type Options struct {
	Spawn    spawn.Options
	Logger   *slog.Logger
	Recorder Recorder
}

// Launcher composes a Spawner and a Supervisor. Every child it creates is
// owned by its Supervisor until reaped.
type Launcher struct {
	spawner *spawn.Spawner
	sup     *supervisor.Supervisor
	rec     Recorder
	logger  *slog.Logger

	mu      sync.Mutex
	started map[int]time.Time
}

// New creates a Launcher.
func New(opts Options) (*Launcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Spawn.Logger == nil {
		opts.Spawn.Logger = logger
	}

	sp, err := spawn.New(opts.Spawn)
	if err != nil {
		return nil, fmt.Errorf("create spawner: %w", err)
	}

	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}

	return &Launcher{
		spawner: sp,
		sup:     supervisor.New(logger),
		rec:     rec,
		logger:  logger,
		started: make(map[int]time.Time),
	}, nil
}

// Supervisor returns the supervisor owning this launcher's children.
func (l *Launcher) Supervisor() *supervisor.Supervisor {
	return l.sup
}

// Executable returns the launcher binary re-executed for every child.
func (l *Launcher) Executable() string {
	return l.spawner.Executable()
}

// Start launches req.Path directly and takes ownership of the child. A
// non-nil error with a positive pid means the child was created but is
// not owned by this call.
func (l *Launcher) Start(req spawn.Request) (int, error) {
	pid, err := l.spawner.Launch(req)
	return l.adopt(ModeDirect, pid, err)
}

// StartViaLinker launches req.Path through req.Linker and takes ownership
// of the child.
func (l *Launcher) StartViaLinker(req spawn.LinkerRequest) (int, error) {
	pid, err := l.spawner.LaunchViaLinker(req)
	return l.adopt(ModeLinker, pid, err)
}

func (l *Launcher) adopt(mode string, pid int, err error) (int, error) {
	if err != nil {
		l.rec.LaunchFailed(mode)
		return spawn.InvalidPID, err
	}

	// Track only fails for a pid someone already registered. The child
	// exists, so its pid is still returned, but it is not a fresh handle.
	if err := l.sup.Track(pid); err != nil {
		l.logger.Error("track_failed", "pid", pid, "error", err)
		return pid, fmt.Errorf("adopt pid %d: %w", pid, err)
	}

	l.mu.Lock()
	l.started[pid] = time.Now()
	l.mu.Unlock()

	l.rec.Launched(mode)
	return pid, nil
}

// Wait blocks until the owned child pid terminates and returns its
// result.
func (l *Launcher) Wait(pid int) (supervisor.Result, error) {
	res, err := l.sup.WaitFor(pid)
	if err != nil {
		if !l.sup.State(pid).IsTracked() {
			l.mu.Lock()
			delete(l.started, pid)
			l.mu.Unlock()
		}
		return res, err
	}

	l.mu.Lock()
	start, ok := l.started[pid]
	delete(l.started, pid)
	l.mu.Unlock()

	var lifetime time.Duration
	if ok {
		lifetime = time.Since(start)
	}
	l.rec.Exited(res, lifetime)
	return res, nil
}

// Kill delivers sig to the owned child pid.
func (l *Launcher) Kill(pid int, sig syscall.Signal) error {
	err := l.sup.Signal(pid, sig)
	l.rec.Signalled(sig, err)
	return err
}

// StartedAt returns when pid was launched, if it is still owned.
func (l *Launcher) StartedAt(pid int) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.started[pid]
	return t, ok
}

// Launch starts binary with argv and exactly envp. It returns the child
// pid, or -1 when no process could be created.
func (l *Launcher) Launch(binary string, argv, envp []string) int {
	pid, _ := l.Start(spawn.Request{Path: binary, Argv: argv, Env: envp})
	return pid
}

// LaunchViaLinker starts linker as
// [linker, "--library-path", libraryPath, binary, argv...] with exactly
// envp. It returns the child pid, or -1.
func (l *Launcher) LaunchViaLinker(linker, libraryPath, binary string, argv, envp []string) int {
	pid, _ := l.StartViaLinker(spawn.LinkerRequest{
		Linker:      linker,
		LibraryPath: libraryPath,
		Request:     spawn.Request{Path: binary, Argv: argv, Env: envp},
	})
	return pid
}

// WaitFor blocks until pid terminates and returns its normalized exit
// code, or -1 if pid cannot be waited on.
func (l *Launcher) WaitFor(pid int) int {
	res, err := l.Wait(pid)
	if err != nil {
		return supervisor.WaitFailed
	}
	return res.Code()
}

// Signal reports whether sig was submitted to pid.
func (l *Launcher) Signal(pid int, sig syscall.Signal) bool {
	return l.Kill(pid, sig) == nil
}
