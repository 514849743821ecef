package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/randomizedcoder/go-linux-launcher/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// A binary is required unless the rootfs shell is launched.
	if cfg.Binary == "" && cfg.RootFS == "" {
		errs = append(errs, ValidationError{
			Field:   "binary",
			Message: "a binary to launch is required (or --rootfs for its shell)",
		})
	}

	if cfg.Command != "" && !cfg.ShellMode() {
		errs = append(errs, ValidationError{
			Field:   "command",
			Message: "--command only applies to the rootfs shell (--rootfs without a binary)",
		})
	}

	if cfg.RootFS != "" && cfg.Linker != "" {
		errs = append(errs, ValidationError{
			Field:   "linker",
			Message: "--linker and --rootfs are mutually exclusive",
		})
	}

	if cfg.LibraryPath != "" && cfg.Linker == "" {
		errs = append(errs, ValidationError{
			Field:   "library_path",
			Message: "--library-path requires --linker",
		})
	}

	for _, kv := range cfg.Env {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			errs = append(errs, ValidationError{
				Field:   "env",
				Message: fmt.Sprintf("must be KEY=VALUE (got %q)", kv),
			})
		}
	}

	if cfg.TTY && cfg.Output != "" {
		errs = append(errs, ValidationError{
			Field:   "output",
			Message: "--output cannot be combined with --tty",
		})
	}

	if cfg.TTY && cfg.TUIEnabled {
		errs = append(errs, ValidationError{
			Field:   "tui",
			Message: "--tui cannot be combined with --tty (both need the terminal)",
		})
	}

	// Restart policy
	switch cfg.Restart {
	case RestartNo, RestartOnFailure, RestartAlways:
	default:
		errs = append(errs, ValidationError{
			Field:   "restart",
			Message: fmt.Sprintf("must be one of: no, on-failure, always (got %q)", cfg.Restart),
		})
	}
	if cfg.MaxRestarts < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_restarts",
			Message: "must not be negative",
		})
	}

	// Backoff settings
	if cfg.BackoffInitial <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backoff_initial",
			Message: "must be positive",
		})
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		errs = append(errs, ValidationError{
			Field:   "backoff_max",
			Message: "must be >= backoff_initial",
		})
	}
	if cfg.BackoffMultiply < 1.0 {
		errs = append(errs, ValidationError{
			Field:   "backoff_multiply",
			Message: "must be >= 1.0",
		})
	}

	// Termination
	if cfg.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must not be negative",
		})
	}
	if _, err := ParseSignal(cfg.StopSignal); err != nil {
		errs = append(errs, ValidationError{
			Field:   "stop_signal",
			Message: err.Error(),
		})
	}
	if cfg.KillAfter <= 0 {
		errs = append(errs, ValidationError{
			Field:   "kill_after",
			Message: "must be positive",
		})
	}

	// Observability
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}
	if !logging.ValidLevel(cfg.LogLevel) {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}
	if cfg.LogSink != logging.SinkStderr && cfg.LogSink != logging.SinkJournal {
		errs = append(errs, ValidationError{
			Field:   "log_sink",
			Message: fmt.Sprintf("must be 'stderr' or 'journal' (got %q)", cfg.LogSink),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
