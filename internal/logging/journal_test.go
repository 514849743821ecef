package logging

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/coreos/go-systemd/v22/journal"
)

type journalEntry struct {
	message  string
	priority journal.Priority
	vars     map[string]string
}

func newCapturingHandler(level slog.Level) (*JournalHandler, *[]journalEntry) {
	var entries []journalEntry
	h := NewJournalHandler(level)
	h.send = func(message string, priority journal.Priority, vars map[string]string) error {
		entries = append(entries, journalEntry{message: message, priority: priority, vars: vars})
		return nil
	}
	return h, &entries
}

func TestJournalHandler_Fields(t *testing.T) {
	h, entries := newCapturingHandler(slog.LevelInfo)
	logger := slog.New(h)

	logger.Info("launch_started", "binary", "/bin/true", "child-pid", 42)

	if len(*entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(*entries))
	}
	e := (*entries)[0]
	if e.message != "launch_started" {
		t.Errorf("message = %q", e.message)
	}
	if e.priority != journal.PriInfo {
		t.Errorf("priority = %v, want PriInfo", e.priority)
	}
	if e.vars["BINARY"] != "/bin/true" {
		t.Errorf("BINARY = %q", e.vars["BINARY"])
	}
	if e.vars["CHILD_PID"] != "42" {
		t.Errorf("CHILD_PID = %q", e.vars["CHILD_PID"])
	}
	if e.vars["SYSLOG_IDENTIFIER"] != SyslogIdentifier {
		t.Errorf("SYSLOG_IDENTIFIER = %q", e.vars["SYSLOG_IDENTIFIER"])
	}
}

func TestJournalHandler_Priorities(t *testing.T) {
	testCases := []struct {
		level    slog.Level
		expected journal.Priority
	}{
		{slog.LevelDebug, journal.PriDebug},
		{slog.LevelInfo, journal.PriInfo},
		{slog.LevelWarn, journal.PriWarning},
		{slog.LevelError, journal.PriErr},
	}

	for _, tc := range testCases {
		t.Run(tc.level.String(), func(t *testing.T) {
			if got := priorityFor(tc.level); got != tc.expected {
				t.Errorf("priorityFor(%v) = %v, want %v", tc.level, got, tc.expected)
			}
		})
	}
}

func TestJournalHandler_LevelFiltering(t *testing.T) {
	h, entries := newCapturingHandler(slog.LevelWarn)
	logger := slog.New(h)

	logger.Info("dropped")
	logger.Error("exec_failed", "error", errors.New("no such file or directory"))

	if len(*entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(*entries))
	}
	if (*entries)[0].vars["ERROR"] != "no such file or directory" {
		t.Errorf("ERROR = %q", (*entries)[0].vars["ERROR"])
	}
}

func TestJournalHandler_WithAttrsAndGroup(t *testing.T) {
	h, entries := newCapturingHandler(slog.LevelInfo)
	logger := slog.New(h).With("pid", 7).WithGroup("exec").With("mode", "linker")

	logger.Info("x", "argc", 3, slog.Group("env", "count", 2))

	e := (*entries)[0]
	want := map[string]string{
		"PID":            "7",
		"EXEC_MODE":      "linker",
		"EXEC_ARGC":      "3",
		"EXEC_ENV_COUNT": "2",
	}
	for k, v := range want {
		if e.vars[k] != v {
			t.Errorf("%s = %q, want %q", k, e.vars[k], v)
		}
	}
}

func TestFieldName(t *testing.T) {
	testCases := map[string]string{
		"binary":        "BINARY",
		"child-pid":     "CHILD_PID",
		"_private":      "PRIVATE",
		"library.path2": "LIBRARY_PATH2",
		"__":            "",
	}
	for in, want := range testCases {
		if got := fieldName(in); got != want {
			t.Errorf("fieldName(%q) = %q, want %q", in, got, want)
		}
	}
}
