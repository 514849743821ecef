package stats

import (
	"fmt"
	"slices"
	"strings"
	"syscall"
	"time"
)

// ExecFailedCode is the status of a child that could not replace its
// image with the target.
const ExecFailedCode = 127

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Binary is the launched program as shown to the user
	Binary string

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// FormatSummary formats the exit summary of a run sequence.
func FormatSummary(sum Summary, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(heavyRule)
	b.WriteString("                          linux-launcher Exit Summary\n")
	b.WriteString(heavyRule + "\n")

	if cfg.Binary != "" {
		fmt.Fprintf(&b, "Binary:                 %s\n", cfg.Binary)
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(sum.Duration))
	fmt.Fprintf(&b, "Runs:                   %d\n", sum.Runs)
	fmt.Fprintf(&b, "Restarts:               %d\n", sum.Restarts)
	fmt.Fprintf(&b, "Failed Runs:            %d\n\n", sum.Failures)

	if len(sum.ExitCodes) > 0 {
		b.WriteString(lightRule)
		b.WriteString("                                  Exit Codes\n")
		b.WriteString(lightRule + "\n")

		codes := make([]int, 0, len(sum.ExitCodes))
		for code := range sum.ExitCodes {
			codes = append(codes, code)
		}
		slices.Sort(codes)

		for _, code := range codes {
			fmt.Fprintf(&b, "  %4d %-24s %8d\n", code, ExitCodeLabel(code), sum.ExitCodes[code])
		}
		b.WriteString("\n")
	}

	if sum.Runs > 0 {
		b.WriteString(lightRule)
		b.WriteString("                                Process Lifetime\n")
		b.WriteString(lightRule + "\n")
		fmt.Fprintf(&b, "  %-8s %12s\n", "min", FormatLifetime(sum.LifetimeMin))
		fmt.Fprintf(&b, "  %-8s %12s\n", "p50", FormatLifetime(sum.LifetimeP50))
		fmt.Fprintf(&b, "  %-8s %12s\n", "p95", FormatLifetime(sum.LifetimeP95))
		fmt.Fprintf(&b, "  %-8s %12s\n", "p99", FormatLifetime(sum.LifetimeP99))
		fmt.Fprintf(&b, "  %-8s %12s\n\n", "max", FormatLifetime(sum.LifetimeMax))
	}

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString(heavyRule)

	return b.String()
}

// ExitCodeLabel returns a human-readable label for a normalized exit
// code.
func ExitCodeLabel(code int) string {
	switch {
	case code == 0:
		return "(clean)"
	case code == 1:
		return "(error)"
	case code == ExecFailedCode:
		return "(exec failed)"
	case code > 128 && code < 128+65:
		return fmt.Sprintf("(signal %d: %s)", code-128, syscall.Signal(code-128))
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatLifetime formats a process lifetime with a unit suited to its
// size.
func FormatLifetime(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d µs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2f s", d.Seconds())
	default:
		return FormatDuration(d)
	}
}
