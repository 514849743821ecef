// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Minimum limits for one supervised child plus the launcher itself.
const (
	requiredFDs       = 64
	requiredProcesses = 16
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// Options describe what is about to be launched.
type Options struct {
	// Binary is the program the user asked for.
	Binary string

	// Linker, when set, is the actual exec target and Binary is its
	// argument.
	Linker      string
	LibraryPath string

	// Self is the launcher executable re-executed for every child.
	Self string

	// TTY requests a pseudo terminal.
	TTY bool
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 6),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkSelf(opts.Self))

	if opts.Linker != "" {
		add(checkExecutable("linker", opts.Linker))
		add(checkExists("binary", opts.Binary))
		add(checkLibraryPath(opts.LibraryPath))
	} else {
		add(checkExecutable("binary", opts.Binary))
	}

	add(checkFileDescriptors())
	add(checkProcessLimit())

	if opts.TTY {
		add(checkPTY())
	}

	return result
}

// checkSelf verifies the launcher can re-execute itself.
func checkSelf(path string) Check {
	c := checkExecutable("launcher", path)
	if c.Passed {
		c.Message = fmt.Sprintf("re-exec via %s", path)
	}
	return c
}

// checkExecutable verifies path exists, is a regular file, and may be
// executed by this process.
func checkExecutable(name, path string) Check {
	if path == "" {
		return Check{Name: name, Passed: false, Message: "no path given"}
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("not found at %s: %v", path, err)}
	}
	if !fi.Mode().IsRegular() {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s is not a regular file", path)}
	}
	if err := canExecute(path); err != nil {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s is not executable: %v", path, err)}
	}

	return Check{Name: name, Passed: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkExists verifies a file the linker will load.
func checkExists(name, path string) Check {
	if path == "" {
		return Check{Name: name, Passed: false, Message: "no path given"}
	}
	if _, err := os.Stat(path); err != nil {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("not found at %s: %v", path, err)}
	}
	return Check{Name: name, Passed: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkLibraryPath warns about search path entries that are not
// directories.
func checkLibraryPath(libraryPath string) Check {
	if libraryPath == "" {
		return Check{
			Name:    "library_path",
			Passed:  true,
			Warning: true,
			Message: "empty (linker defaults only)",
		}
	}

	var missing []string
	dirs := filepath.SplitList(libraryPath)
	for _, dir := range dirs {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			missing = append(missing, dir)
		}
	}

	if len(missing) > 0 {
		return Check{
			Name:    "library_path",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%d of %d directories missing: %s", len(missing), len(dirs), strings.Join(missing, ", ")),
		}
	}
	return Check{
		Name:    "library_path",
		Passed:  true,
		Message: fmt.Sprintf("%d directories", len(dirs)),
	}
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	actual, ok := fdLimit()
	if !ok {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check (unsupported platform)",
		}
	}

	return Check{
		Name:     "file_descriptors",
		Required: requiredFDs,
		Actual:   actual,
		Passed:   actual >= requiredFDs,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, requiredFDs),
	}
}

// checkProcessLimit verifies sufficient process slots are available.
func checkProcessLimit() Check {
	actual, ok := processLimit()
	if !ok {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (unsupported platform)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: requiredProcesses,
		Actual:   actual,
		Passed:   actual >= requiredProcesses,
		Message:  fmt.Sprintf("ulimit -u %d (need %d)", actual, requiredProcesses),
	}
}

// checkPTY verifies a pseudo terminal multiplexer is available.
func checkPTY() Check {
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		return Check{Name: "pty", Passed: false, Message: fmt.Sprintf("/dev/ptmx unavailable: %v", err)}
	}
	return Check{Name: "pty", Passed: true, Message: "/dev/ptmx present"}
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	case "binary":
		return "check the path, or use --rootfs to resolve it inside a root filesystem"
	case "linker":
		return "chmod +x the dynamic linker, or pass the right one with --linker"
	case "launcher":
		return "run linux-launcher from a path that is still present and executable"
	case "pty":
		return "mount devpts, or drop --tty"
	default:
		return "see documentation"
	}
}
