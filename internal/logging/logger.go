// Package logging provides structured logging for go-linux-launcher.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	// SinkStderr writes log records to standard error.
	SinkStderr = "stderr"

	// SinkJournal writes log records to the systemd journal.
	SinkJournal = "journal"
)

// NewLogger creates a new structured logger with the specified format and level.
// Format should be "json" or "text".
// Level should be "debug", "info", "warn", or "error".
func NewLogger(format, level string, verbose bool) *slog.Logger {
	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		// Add source location for debug level
		AddSource: logLevel == slog.LevelDebug,
	}

	return slog.New(newHandler(os.Stderr, format, opts, true))
}

// NewLoggerWithWriter creates a logger that writes to a custom writer.
// Useful for testing.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	return slog.New(newHandler(w, format, opts, false))
}

// NewSinkLogger creates a logger for the named sink. The journal sink falls
// back to stderr when journald is not reachable.
func NewSinkLogger(sink, format, level string, verbose bool) *slog.Logger {
	if strings.ToLower(sink) == SinkJournal && JournalAvailable() {
		logLevel := parseLevel(level)
		if verbose {
			logLevel = slog.LevelDebug
		}
		return slog.New(NewJournalHandler(logLevel))
	}
	return NewLogger(format, level, verbose)
}

// newHandler picks the slog handler for a format. jsonDefault selects the
// fallback for unknown formats.
func newHandler(w io.Writer, format string, opts *slog.HandlerOptions, jsonDefault bool) slog.Handler {
	switch strings.ToLower(format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		if jsonDefault {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
