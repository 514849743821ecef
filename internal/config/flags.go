package config

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
)

// flagCategories orders the usage output.
var flagCategories = []struct {
	title string
	names []string
}{
	{"Target", []string{"rootfs", "linker", "library-path", "workdir", "command"}},
	{"Environment", []string{"env", "inherit-env"}},
	{"Child I/O", []string{"tty", "output", "new-pgrp"}},
	{"Restart Policy", []string{"restart", "max-restarts", "backoff-initial", "backoff-max", "backoff-multiply"}},
	{"Termination", []string{"timeout", "stop-signal", "kill-after"}},
	{"Observability", []string{"metrics", "metrics-dump", "log-format", "log-level", "log-sink", "verbose"}},
	{"Dashboard", []string{"tui"}},
	{"Diagnostics", []string{"print-cmd", "skip-preflight", "version"}},
}

// NewFlagSet binds every option to cfg.
func NewFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("linux-launcher", flag.ContinueOnError)
	// Everything after the binary belongs to the child.
	fs.SetInterspersed(false)

	// Target
	fs.StringVar(&cfg.RootFS, "rootfs", cfg.RootFS, "Foreign root filesystem; the linker and library path are discovered in it")
	fs.StringVar(&cfg.Linker, "linker", cfg.Linker, "Dynamic linker to start the binary through")
	fs.StringVar(&cfg.LibraryPath, "library-path", cfg.LibraryPath, "Library search path passed to the linker (colon separated)")
	fs.StringVar(&cfg.Workdir, "workdir", cfg.Workdir, "PWD reported to a rootfs child (default /home)")
	fs.StringVarP(&cfg.Command, "command", "c", cfg.Command, "Command for the rootfs bash (bash -i -c COMMAND)")

	// Environment
	fs.StringArrayVarP(&cfg.Env, "env", "e", cfg.Env, "Set KEY=VALUE in the child environment (can repeat)")
	fs.BoolVar(&cfg.InheritEnv, "inherit-env", cfg.InheritEnv, "Start from the launcher's own environment instead of an empty one")

	// Child I/O
	fs.BoolVarP(&cfg.TTY, "tty", "t", cfg.TTY, "Run the child on a pseudo terminal")
	fs.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Append child stdout and stderr to this file")
	fs.BoolVar(&cfg.NewProcessGroup, "new-pgrp", cfg.NewProcessGroup, "Put the child in its own process group")

	// Restart policy
	fs.StringVar(&cfg.Restart, "restart", cfg.Restart, `Restart policy: "no", "on-failure", "always"`)
	fs.IntVar(&cfg.MaxRestarts, "max-restarts", cfg.MaxRestarts, "Maximum restarts (0 = unlimited)")
	fs.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "First restart delay")
	fs.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Maximum restart delay")
	fs.Float64Var(&cfg.BackoffMultiply, "backoff-multiply", cfg.BackoffMultiply, "Restart delay growth factor")

	// Termination
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Stop each run after this long (0 = never)")
	fs.StringVar(&cfg.StopSignal, "stop-signal", cfg.StopSignal, "Signal sent when the timeout expires")
	fs.DurationVar(&cfg.KillAfter, "kill-after", cfg.KillAfter, "Send SIGKILL this long after the stop signal")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Serve Prometheus metrics on this address (empty = disabled)")
	fs.BoolVar(&cfg.MetricsDump, "metrics-dump", cfg.MetricsDump, "Print metrics in text exposition format on exit")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)
	fs.StringVar(&cfg.LogSink, "log-sink", cfg.LogSink, `Log sink: "stderr" or "journal"`)
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging (same as --log-level=debug)")

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Show a live dashboard instead of attaching the child to the terminal")

	// Diagnostics
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the resolved argument vector and environment, then exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
	fs.BoolVar(&cfg.Version, "version", cfg.Version, "Print version and exit")

	fs.Usage = func() { printUsage(os.Stderr, fs) }
	return fs
}

// ParseFlags parses args (without the program name) into a Config. The
// first positional argument is the binary, the rest are its arguments.
func ParseFlags(args []string) (*Config, error) {
	cfg := DefaultConfig()
	fs := NewFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if rest := fs.Args(); len(rest) > 0 {
		cfg.Binary = rest[0]
		cfg.Args = rest[1:]
	}
	return cfg, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `linux-launcher - start a binary directly, without a shell, and supervise it

Usage:
  linux-launcher [flags] BINARY [ARGS...]
  linux-launcher --linker LD --library-path DIRS [flags] BINARY [ARGS...]
  linux-launcher --rootfs DIR [flags] [BINARY [ARGS...]]
`)
	for _, cat := range flagCategories {
		sub := flag.NewFlagSet(cat.title, flag.ContinueOnError)
		for _, name := range cat.names {
			if f := fs.Lookup(name); f != nil {
				sub.AddFlag(f)
			}
		}
		fmt.Fprintf(w, "\n%s:\n%s", cat.title, sub.FlagUsages())
	}
	fmt.Fprintf(w, `
Examples:
  # Exact environment, no shell
  linux-launcher --env PATH=/bin -- /bin/ls -l /

  # Binary from a foreign rootfs, through its own linker
  linux-launcher --rootfs /srv/ubuntu --tty /usr/bin/htop

  # Interactive bash in the rootfs, restarted when it crashes
  linux-launcher --rootfs /srv/ubuntu --tty --restart on-failure

`)
}
