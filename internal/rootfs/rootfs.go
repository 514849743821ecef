// Package rootfs locates the dynamic linker and library directories of a
// foreign root filesystem and builds linker-indirected launch plans for
// binaries inside it.
package rootfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
)

var (
	// ErrNoLinker is returned when no known dynamic linker exists under root.
	ErrNoLinker = errors.New("no dynamic linker found in rootfs")

	// ErrNoBinary is returned when the target binary does not exist.
	ErrNoBinary = errors.New("binary not found in rootfs")
)

// LinkerCandidates are probed in order, relative to the root.
var LinkerCandidates = []string{
	"lib64/ld-linux-x86-64.so.2",
	"lib/ld-linux-x86-64.so.2",
	"lib/ld-linux-aarch64.so.1",
	"lib64/ld-linux-aarch64.so.1",
	"lib/aarch64-linux-gnu/ld-linux-aarch64.so.1",
	"lib/x86_64-linux-gnu/ld-linux-x86-64.so.2",
	"lib/ld-linux-armhf.so.3",
	"lib/arm-linux-gnueabihf/ld-linux-armhf.so.3",
}

// LibraryDirs make up the library search path, in order, when present.
var LibraryDirs = []string{
	"lib",
	"lib64",
	"usr/lib",
	"usr/lib64",
	"lib/aarch64-linux-gnu",
	"lib/x86_64-linux-gnu",
	"lib/arm-linux-gnueabihf",
	"usr/lib/aarch64-linux-gnu",
	"usr/lib/x86_64-linux-gnu",
	"usr/lib/arm-linux-gnueabihf",
}

// Shell is the interpreter started by ShellPlan, relative to the root.
const Shell = "bin/bash"

// DefaultWorkdir is the PWD reported to the child when none is given.
const DefaultWorkdir = "/home"

// FindLinker returns the absolute path of the first linker candidate that
// exists under root.
func FindLinker(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve rootfs %s: %w", root, err)
	}
	for _, rel := range LinkerCandidates {
		p := filepath.Join(abs, rel)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", abs, ErrNoLinker)
}

// LibraryPath joins the existing library directories under root with ':'.
// It is empty if none exist.
func LibraryPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	var dirs []string
	for _, rel := range LibraryDirs {
		p := filepath.Join(abs, rel)
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			dirs = append(dirs, p)
		}
	}
	return strings.Join(dirs, ":")
}

// Environment returns the default environment of a rootfs child followed
// by overrides. An override for a default key replaces it in place; new
// keys are appended in the order given. Entries without '=' are ignored.
func Environment(overrides []string, workdir, libraryPath string) []string {
	if workdir == "" {
		workdir = DefaultWorkdir
	}
	env := []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"HOME=/home",
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		"LANG=C.UTF-8",
		"LC_ALL=C.UTF-8",
		"PWD=" + workdir,
		"SHELL=/bin/bash",
		"USER=root",
		"LOGNAME=root",
		"LD_LIBRARY_PATH=" + libraryPath,
		"TMPDIR=/tmp",
	}
	return Merge(env, overrides)
}

// Merge applies KEY=VALUE overrides to base without reordering existing
// keys.
func Merge(base, overrides []string) []string {
	out := make([]string, len(base), len(base)+len(overrides))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, kv := range out {
		if k, _, ok := strings.Cut(kv, "="); ok {
			index[k] = i
		}
	}

	for _, kv := range overrides {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if i, seen := index[k]; seen {
			out[i] = kv
			continue
		}
		index[k] = len(out)
		out = append(out, kv)
	}
	return out
}

// Plan is a linker-indirected launch of a binary inside a rootfs.
type Plan struct {
	Linker      string
	LibraryPath string
	Binary      string
	Args        []string
	Env         []string
}

// NewPlan resolves binary under root and builds its launch plan. A binary
// given as an absolute path is interpreted inside the rootfs. env holds
// overrides on top of Environment.
func NewPlan(root, binary string, args, env []string, workdir string) (Plan, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Plan{}, fmt.Errorf("resolve rootfs %s: %w", root, err)
	}

	target := filepath.Join(abs, strings.TrimPrefix(binary, "/"))
	if _, err := os.Stat(target); err != nil {
		return Plan{}, fmt.Errorf("%s: %w", target, ErrNoBinary)
	}

	linker, err := FindLinker(abs)
	if err != nil {
		return Plan{}, err
	}

	lib := LibraryPath(abs)
	return Plan{
		Linker:      linker,
		LibraryPath: lib,
		Binary:      target,
		Args:        append([]string(nil), args...),
		Env:         Environment(env, workdir, lib),
	}, nil
}

// ShellPlan builds the plan for an interactive bash in root. A non-empty
// command is run with -c.
func ShellPlan(root, workdir string, env []string, command string) (Plan, error) {
	args := []string{"-i"}
	if command != "" {
		args = append(args, "-c", command)
	}
	return NewPlan(root, Shell, args, env, workdir)
}

// LinkerRequest converts the plan into a spawn request.
func (p Plan) LinkerRequest() spawn.LinkerRequest {
	return spawn.LinkerRequest{
		Linker:      p.Linker,
		LibraryPath: p.LibraryPath,
		Request: spawn.Request{
			Path: p.Binary,
			Argv: p.Args,
			Env:  p.Env,
		},
	}
}

// Argv returns the vector the linker will be invoked with.
func (p Plan) Argv() []string {
	return spawn.LinkerArgv(p.Linker, p.LibraryPath, p.Binary, p.Args)
}
