package runner

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/randomizedcoder/go-linux-launcher/internal/config"
	"github.com/randomizedcoder/go-linux-launcher/internal/launcher"
	"github.com/randomizedcoder/go-linux-launcher/internal/rootfs"
	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
)

// Target is a fully resolved launch: what is executed, with which
// arguments and environment, and whether a dynamic linker sits in front.
type Target struct {
	Binary      string
	Args        []string
	Env         []string
	Linker      string
	LibraryPath string

	// plan is set for rootfs targets and builds their linker request.
	plan *rootfs.Plan
}

// ResolveTarget builds the Target for cfg. A bare binary name is looked up
// in the launcher's PATH in direct mode; linker and rootfs targets are
// used as given.
func ResolveTarget(cfg *config.Config) (Target, error) {
	env := cfg.Env
	if cfg.InheritEnv {
		env = rootfs.Merge(os.Environ(), cfg.Env)
	}

	switch {
	case cfg.ShellMode():
		plan, err := rootfs.ShellPlan(cfg.RootFS, cfg.Workdir, env, cfg.Command)
		if err != nil {
			return Target{}, err
		}
		return targetFromPlan(plan), nil

	case cfg.UsesRootFS():
		plan, err := rootfs.NewPlan(cfg.RootFS, cfg.Binary, cfg.Args, env, cfg.Workdir)
		if err != nil {
			return Target{}, err
		}
		return targetFromPlan(plan), nil

	case cfg.Linker != "":
		return Target{
			Binary:      cfg.Binary,
			Args:        cfg.Args,
			Env:         rootfs.Merge(nil, env),
			Linker:      cfg.Linker,
			LibraryPath: cfg.LibraryPath,
		}, nil
	}

	binary := cfg.Binary
	if !strings.Contains(binary, "/") {
		path, err := exec.LookPath(binary)
		if err != nil {
			return Target{}, fmt.Errorf("resolve %s: %w", binary, err)
		}
		binary = path
	}
	return Target{
		Binary: binary,
		Args:   cfg.Args,
		Env:    rootfs.Merge(nil, env),
	}, nil
}

func targetFromPlan(p rootfs.Plan) Target {
	return Target{
		Binary:      p.Binary,
		Args:        p.Args,
		Env:         p.Env,
		Linker:      p.Linker,
		LibraryPath: p.LibraryPath,
		plan:        &p,
	}
}

// Mode returns launcher.ModeLinker or launcher.ModeDirect.
func (t Target) Mode() string {
	if t.Linker != "" {
		return launcher.ModeLinker
	}
	return launcher.ModeDirect
}

// Argv returns the argument vector the child will run with.
func (t Target) Argv() []string {
	if t.plan != nil {
		return t.plan.Argv()
	}
	if t.Linker != "" {
		return spawn.LinkerArgv(t.Linker, t.LibraryPath, t.Binary, t.Args)
	}
	argv := make([]string, 0, 1+len(t.Args))
	argv = append(argv, t.Binary)
	return append(argv, t.Args...)
}

// Request returns the direct launch request.
func (t Target) Request(stdio spawn.Stdio) spawn.Request {
	return spawn.Request{
		Path:  t.Binary,
		Argv:  t.Argv(),
		Env:   t.Env,
		Stdio: stdio,
	}
}

// LinkerRequest returns the linker launch request.
func (t Target) LinkerRequest(stdio spawn.Stdio) spawn.LinkerRequest {
	if t.plan != nil {
		req := t.plan.LinkerRequest()
		req.Stdio = stdio
		return req
	}
	return spawn.LinkerRequest{
		Linker:      t.Linker,
		LibraryPath: t.LibraryPath,
		Request: spawn.Request{
			Path:  t.Binary,
			Argv:  t.Args,
			Env:   t.Env,
			Stdio: stdio,
		},
	}
}

// CommandString returns the command line that would be executed (for
// --print-cmd), with the environment prefixed. Every word is quoted for a
// POSIX shell, so pasting the line runs exactly Argv.
func (t Target) CommandString() string {
	cmd := shellescape.QuoteCommand(t.Argv())
	if len(t.Env) == 0 {
		return cmd
	}
	return "env -i " + shellescape.QuoteCommand(t.Env) + " " + cmd
}
