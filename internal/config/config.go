// Package config provides configuration management for linux-launcher.
package config

import "time"

// Restart policies.
const (
	RestartNo        = "no"
	RestartOnFailure = "on-failure"
	RestartAlways    = "always"
)

// Config holds all configuration options for a launch.
type Config struct {
	// Target
	Binary      string   `json:"binary"`
	Args        []string `json:"args"`
	RootFS      string   `json:"rootfs"`
	Linker      string   `json:"linker"`
	LibraryPath string   `json:"library_path"`
	Workdir     string   `json:"workdir"`
	Command     string   `json:"command"` // rootfs shell mode: bash -i -c COMMAND
	Env         []string `json:"env"`
	InheritEnv  bool     `json:"inherit_env"`

	// Child I/O
	TTY             bool   `json:"tty"`
	Output          string `json:"output"` // file for child stdout/stderr, empty = inherit
	NewProcessGroup bool   `json:"new_process_group"`

	// Restart policy
	Restart         string        `json:"restart"`
	MaxRestarts     int           `json:"max_restarts"` // 0 = unlimited
	BackoffInitial  time.Duration `json:"backoff_initial"`
	BackoffMax      time.Duration `json:"backoff_max"`
	BackoffMultiply float64       `json:"backoff_multiply"`

	// Termination
	Timeout    time.Duration `json:"timeout"` // 0 = none
	StopSignal string        `json:"stop_signal"`
	KillAfter  time.Duration `json:"kill_after"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	MetricsDump bool   `json:"metrics_dump"`
	LogFormat   string `json:"log_format"` // json, text
	LogLevel    string `json:"log_level"`
	LogSink     string `json:"log_sink"` // stderr, journal
	Verbose     bool   `json:"verbose"`
	TUIEnabled  bool   `json:"tui"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	SkipPreflight bool `json:"skip_preflight"`
	Version       bool `json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Restart policy
		Restart:         RestartNo,
		MaxRestarts:     0,
		BackoffInitial:  250 * time.Millisecond,
		BackoffMax:      5 * time.Second,
		BackoffMultiply: 1.7,

		// Termination
		StopSignal: "SIGTERM",
		KillAfter:  10 * time.Second,

		// Observability
		LogFormat: "text",
		LogLevel:  "warn",
		LogSink:   "stderr",
	}
}

// UsesRootFS reports whether the target is resolved inside a rootfs.
func (c *Config) UsesRootFS() bool {
	return c.RootFS != ""
}

// UsesLinker reports whether the child is started through a dynamic
// linker, either explicit or discovered in the rootfs.
func (c *Config) UsesLinker() bool {
	return c.Linker != "" || c.RootFS != ""
}

// ShellMode reports whether the rootfs bash is launched instead of an
// explicit binary.
func (c *Config) ShellMode() bool {
	return c.RootFS != "" && c.Binary == ""
}
