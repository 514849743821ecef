package config

import (
	"errors"
	"slices"
	"strings"
	"syscall"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Restart != RestartNo {
		t.Errorf("Restart = %q, want %q", cfg.Restart, RestartNo)
	}
	if cfg.BackoffInitial != 250*time.Millisecond {
		t.Errorf("BackoffInitial = %v, want 250ms", cfg.BackoffInitial)
	}
	if cfg.BackoffMax != 5*time.Second {
		t.Errorf("BackoffMax = %v, want 5s", cfg.BackoffMax)
	}
	if cfg.BackoffMultiply != 1.7 {
		t.Errorf("BackoffMultiply = %v, want 1.7", cfg.BackoffMultiply)
	}
	if cfg.StopSignal != "SIGTERM" {
		t.Errorf("StopSignal = %q", cfg.StopSignal)
	}
	if cfg.LogLevel != "warn" || cfg.LogFormat != "text" || cfg.LogSink != "stderr" {
		t.Errorf("log defaults = %q/%q/%q", cfg.LogLevel, cfg.LogFormat, cfg.LogSink)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("MetricsAddr = %q, want disabled", cfg.MetricsAddr)
	}
}

func TestParseFlags(t *testing.T) {
	testCases := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "binary and args",
			args: []string{"/bin/ls", "-l", "/"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Binary != "/bin/ls" || !slices.Equal(cfg.Args, []string{"-l", "/"}) {
					t.Errorf("Binary/Args = %q %q", cfg.Binary, cfg.Args)
				}
			},
		},
		{
			name: "child flags are not parsed",
			args: []string{"--tty", "/bin/grep", "--tty", "-v", "x"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.TTY || cfg.Verbose {
					t.Errorf("TTY=%v Verbose=%v", cfg.TTY, cfg.Verbose)
				}
				if !slices.Equal(cfg.Args, []string{"--tty", "-v", "x"}) {
					t.Errorf("Args = %q", cfg.Args)
				}
			},
		},
		{
			name: "double dash",
			args: []string{"--", "-weird-name"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Binary != "-weird-name" {
					t.Errorf("Binary = %q", cfg.Binary)
				}
			},
		},
		{
			name: "repeatable env keeps commas",
			args: []string{"-e", "A=1,2", "--env", "B=x", "/bin/env"},
			check: func(t *testing.T, cfg *Config) {
				if !slices.Equal(cfg.Env, []string{"A=1,2", "B=x"}) {
					t.Errorf("Env = %q", cfg.Env)
				}
			},
		},
		{
			name: "linker",
			args: []string{"--linker", "/r/lib/ld.so", "--library-path", "/r/lib:/r/usr/lib", "/r/bin/app"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Linker != "/r/lib/ld.so" || cfg.LibraryPath != "/r/lib:/r/usr/lib" {
					t.Errorf("Linker/LibraryPath = %q %q", cfg.Linker, cfg.LibraryPath)
				}
				if !cfg.UsesLinker() || cfg.UsesRootFS() {
					t.Error("unexpected mode")
				}
			},
		},
		{
			name: "rootfs shell",
			args: []string{"--rootfs", "/srv/root", "-c", "uname -a"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.ShellMode() || cfg.Command != "uname -a" {
					t.Errorf("ShellMode=%v Command=%q", cfg.ShellMode(), cfg.Command)
				}
			},
		},
		{
			name: "restart and termination",
			args: []string{"--restart", "on-failure", "--max-restarts", "3", "--timeout", "2s", "--stop-signal", "INT", "--kill-after", "1s", "/bin/true"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Restart != RestartOnFailure || cfg.MaxRestarts != 3 {
					t.Errorf("Restart=%q MaxRestarts=%d", cfg.Restart, cfg.MaxRestarts)
				}
				if cfg.Timeout != 2*time.Second || cfg.KillAfter != time.Second || cfg.StopSignal != "INT" {
					t.Errorf("Timeout=%v KillAfter=%v StopSignal=%q", cfg.Timeout, cfg.KillAfter, cfg.StopSignal)
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := ParseFlags(tc.args)
			if err != nil {
				t.Fatalf("ParseFlags: %v", err)
			}
			tc.check(t, cfg)
		})
	}
}

func TestParseFlags_Errors(t *testing.T) {
	if _, err := ParseFlags([]string{"--no-such-flag"}); err == nil {
		t.Error("expected error for unknown flag")
	}
	if _, err := ParseFlags([]string{"--max-restarts", "many"}); err == nil {
		t.Error("expected error for a non-numeric value")
	}
	if _, err := ParseFlags([]string{"--help"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("--help err = %v, want ErrHelp", err)
	}
}

func TestParseFlags_Version(t *testing.T) {
	testCases := []struct {
		args []string
		want bool
	}{
		{[]string{"--version"}, true},
		{[]string{"--tty", "--version"}, true},
		{[]string{"--rootfs", "/r", "--version"}, true},
		{[]string{"/bin/prog", "--version"}, false},
		{[]string{"--", "--version"}, false},
		{nil, false},
	}

	for _, tc := range testCases {
		cfg, err := ParseFlags(tc.args)
		if err != nil {
			t.Fatalf("ParseFlags(%q): %v", tc.args, err)
		}
		if cfg.Version != tc.want {
			t.Errorf("ParseFlags(%q).Version = %v, want %v", tc.args, cfg.Version, tc.want)
		}
	}
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Binary = "/bin/true"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("Validate: %v", err)
	}

	shell := DefaultConfig()
	shell.RootFS = "/srv/root"
	shell.Command = "ls"
	if err := Validate(shell); err != nil {
		t.Errorf("Validate(rootfs shell): %v", err)
	}
}

func TestValidate_Fields(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"missing binary", func(c *Config) { c.Binary = "" }, "binary"},
		{"command without rootfs", func(c *Config) { c.Command = "ls" }, "command"},
		{"linker with rootfs", func(c *Config) { c.RootFS = "/r"; c.Linker = "/ld" }, "linker"},
		{"library path without linker", func(c *Config) { c.LibraryPath = "/lib" }, "library_path"},
		{"bad env", func(c *Config) { c.Env = []string{"NOEQUALS"} }, "env"},
		{"empty env key", func(c *Config) { c.Env = []string{"=v"} }, "env"},
		{"tty with output", func(c *Config) { c.TTY = true; c.Output = "/tmp/x" }, "output"},
		{"tty with tui", func(c *Config) { c.TTY = true; c.TUIEnabled = true }, "tui"},
		{"bad restart", func(c *Config) { c.Restart = "sometimes" }, "restart"},
		{"negative restarts", func(c *Config) { c.MaxRestarts = -1 }, "max_restarts"},
		{"zero backoff", func(c *Config) { c.BackoffInitial = 0 }, "backoff_initial"},
		{"max below initial", func(c *Config) { c.BackoffMax = 100 * time.Millisecond }, "backoff_max"},
		{"multiplier below one", func(c *Config) { c.BackoffMultiply = 0.5 }, "backoff_multiply"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"bad stop signal", func(c *Config) { c.StopSignal = "SIGNOPE" }, "stop_signal"},
		{"zero kill-after", func(c *Config) { c.KillAfter = 0 }, "kill_after"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad log sink", func(c *Config) { c.LogSink = "syslog" }, "log_sink"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field+":") {
				t.Errorf("error %q does not mention %s", err, tc.field)
			}
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Restart = "bad"
	cfg.LogFormat = "bad"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}

	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("errors.As ValidationError failed for %v", err)
	}
	for _, field := range []string{"binary", "restart", "log_format"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s: %v", field, err)
		}
	}
}

func TestParseSignal(t *testing.T) {
	testCases := []struct {
		in      string
		want    syscall.Signal
		wantErr bool
	}{
		{"SIGTERM", syscall.SIGTERM, false},
		{"TERM", syscall.SIGTERM, false},
		{"term", syscall.SIGTERM, false},
		{"kill", syscall.SIGKILL, false},
		{"9", syscall.SIGKILL, false},
		{"2", syscall.SIGINT, false},
		{"0", 0, true},
		{"99", 0, true},
		{"", 0, true},
		{"SIGFOO", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSignal(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseSignal(%q) err = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseSignal(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "restart", Message: "bad"}
	if err.Error() != "restart: bad" {
		t.Errorf("Error() = %q", err.Error())
	}
}
