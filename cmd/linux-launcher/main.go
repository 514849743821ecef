// Package main provides the linux-launcher CLI entry point.
//
// linux-launcher starts a binary as a new process without a command
// interpreter, directly or through an explicit dynamic linker, supervises
// it, and exits with the child's normalized exit code.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/randomizedcoder/go-linux-launcher/internal/config"
	"github.com/randomizedcoder/go-linux-launcher/internal/logging"
	"github.com/randomizedcoder/go-linux-launcher/internal/runner"
	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/linux-launcher
var version = "dev"

func main() {
	// Launcher children re-enter here and never return from Init.
	spawn.Init()
	os.Exit(run())
}

func run() int {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 2
	}
	if cfg.Version {
		fmt.Printf("linux-launcher %s\n", version)
		return 0
	}

	// The dashboard owns the terminal, so logs are discarded under --tui.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewSinkLogger(cfg.LogSink, cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 2
	}

	if cfg.PrintCmd {
		target, err := runner.ResolveTarget(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println("# Command that would be run:")
		fmt.Println()
		fmt.Println(target.CommandString())
		return 0
	}

	r, err := runner.New(runner.Options{
		Config:  cfg,
		Logger:  logger,
		Version: version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.Verbose && !cfg.TUIEnabled {
		printBanner(cfg, r.Target())
	}

	logger.Info("starting",
		"version", version,
		"binary", r.Target().Binary,
		"mode", r.Target().Mode(),
		"restart", cfg.Restart,
		"metrics_addr", cfg.MetricsAddr,
	)

	code, err := r.Run(context.Background())
	if err != nil {
		logger.Error("launch_failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return code
}

// printBanner prints the startup banner to stderr.
func printBanner(cfg *config.Config, target runner.Target) {
	w := os.Stderr
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  linux-launcher %s\n", version)
	fmt.Fprintf(w, "  Binary:      %s\n", target.Binary)
	fmt.Fprintf(w, "  Mode:        %s\n", target.Mode())
	if target.Linker != "" {
		fmt.Fprintf(w, "  Linker:      %s\n", target.Linker)
		fmt.Fprintf(w, "  Libraries:   %s\n", strings.ReplaceAll(target.LibraryPath, ":", " "))
	}
	fmt.Fprintf(w, "  Restart:     %s\n", cfg.Restart)
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(w, "  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Fprintln(w)
}
