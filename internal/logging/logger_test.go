package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"Debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"debug", true},
		{"INFO", true},
		{"warn", true},
		{"warning", true},
		{"error", true},
		{"", false},
		{"trace", false},
		{"fatal", false},
	}

	for _, tt := range tests {
		if got := ValidLevel(tt.in); got != tt.want {
			t.Errorf("ValidLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerWithWriter_JSONRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "json", "info")
	logger.Info("launch_started", "pid", 4242, "binary", "/bin/true")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not a JSON record: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "launch_started" {
		t.Errorf("msg = %v, want launch_started", rec["msg"])
	}
	if rec["binary"] != "/bin/true" {
		t.Errorf("binary = %v, want /bin/true", rec["binary"])
	}
	if rec["pid"] != float64(4242) {
		t.Errorf("pid = %v, want 4242", rec["pid"])
	}
}

func TestNewLoggerWithWriter_TextFallback(t *testing.T) {
	for _, format := range []string{"text", "", "logfmt"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, format, "info")
			logger.Info("process_exited", "code", 137)

			out := buf.String()
			if strings.HasPrefix(strings.TrimSpace(out), "{") {
				t.Fatalf("format %q produced JSON: %s", format, out)
			}
			if !strings.Contains(out, "msg=process_exited") || !strings.Contains(out, "code=137") {
				t.Errorf("unexpected text record: %s", out)
			}
		})
	}
}

func TestNewLoggerWithWriter_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		emitted []string
		dropped []string
	}{
		{"debug", []string{"d", "i", "w", "e"}, nil},
		{"info", []string{"i", "w", "e"}, []string{"d"}},
		{"warn", []string{"w", "e"}, []string{"d", "i"}},
		{"error", []string{"e"}, []string{"d", "i", "w"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, "text", tt.level)
			logger.Debug("event", "tag", "d")
			logger.Info("event", "tag", "i")
			logger.Warn("event", "tag", "w")
			logger.Error("event", "tag", "e")

			out := buf.String()
			for _, tag := range tt.emitted {
				if !strings.Contains(out, "tag="+tag) {
					t.Errorf("level %s dropped tag=%s", tt.level, tag)
				}
			}
			for _, tag := range tt.dropped {
				if strings.Contains(out, "tag="+tag) {
					t.Errorf("level %s emitted tag=%s", tt.level, tag)
				}
			}
		})
	}
}

func TestNewLogger_Verbose(t *testing.T) {
	logger := NewLogger("text", "error", true)
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("verbose logger should enable debug")
	}

	quiet := NewLogger("json", "error", false)
	if quiet.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("error-level logger should not enable warn")
	}
}

func TestSetDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(NewLoggerWithWriter(&buf, "text", "info"))
	slog.Info("signal_sent", "signal", "SIGTERM")

	if !strings.Contains(buf.String(), "signal=SIGTERM") {
		t.Errorf("default logger not replaced, got %q", buf.String())
	}
}

func TestNewSinkLogger(t *testing.T) {
	for _, sink := range []string{SinkStderr, SinkJournal, "unknown"} {
		t.Run(sink, func(t *testing.T) {
			logger := NewSinkLogger(sink, "text", "warn", false)
			if logger == nil {
				t.Fatal("NewSinkLogger returned nil")
			}
			if logger.Enabled(context.Background(), slog.LevelInfo) {
				t.Error("warn-level sink logger should not enable info")
			}
		})
	}
}
