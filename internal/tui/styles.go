// Package tui provides a live terminal dashboard for a launched process.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. It shows the current child, its uptime, restart count, the
// last exit result and lifetime percentiles, and lets the operator send
// signals to the child from the keyboard.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors adapt to light and dark terminal backgrounds.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	colorTitle  = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

	colorGood = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorWarn = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorBad  = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorNote = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#A78BFA"}

	colorFg    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F3F4F6"}
	colorFaint = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorRule  = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
)

func bold(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

var (
	mutedStyle = lipgloss.NewStyle().Foreground(colorFaint)
	dimStyle   = lipgloss.NewStyle().Foreground(colorFaint).Faint(true)

	statusOK      = bold(colorGood)
	statusWarning = bold(colorWarn)
	statusError   = bold(colorBad)
	statusInfo    = bold(colorNote)

	valueStyle     = bold(colorFg)
	valueGoodStyle = bold(colorGood)
	valueBadStyle  = bold(colorBad)
	valueWarnStyle = bold(colorWarn)

	labelStyle = lipgloss.NewStyle().Foreground(colorFaint).Width(16)
)

// Layout.
var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRule).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorAccent).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = bold(colorTitle).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorRule)

	footerStyle = lipgloss.NewStyle().Foreground(colorFaint).MarginTop(1)

	barFilledStyle = lipgloss.NewStyle().Foreground(colorAccent)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorRule)
)

// GetStateStyle returns the style used for a process state label.
func GetStateStyle(s ProcState) lipgloss.Style {
	switch s {
	case ProcRunning:
		return statusOK
	case ProcRestarting:
		return statusWarning
	case ProcExited:
		return statusError
	default:
		return statusInfo
	}
}

// GetStateLabel returns a styled state label.
func GetStateLabel(s ProcState) string {
	return GetStateStyle(s).Render("● " + s.String())
}

// GetCodeStyle picks a style for a normalized exit code: clean exits are
// green, signal deaths amber, everything else red.
func GetCodeStyle(code int) lipgloss.Style {
	switch {
	case code == 0:
		return valueGoodStyle
	case code > 128:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render(label+":"),
		valueStyle.Render(value),
	)
}

// RenderProgressBar renders a bar of at least 10 cells followed by the
// percentage. progress is clamped to [0, 1] for the bar.
func RenderProgressBar(progress float64, width int) string {
	width = max(width, 10)
	filled := min(max(int(progress*float64(width)), 0), width)

	return barFilledStyle.Render(cells('█', filled)) +
		barEmptyStyle.Render(cells('░', width-filled)) +
		valueStyle.Render(fmt.Sprintf(" %3.0f%%", progress*100))
}

func cells(r rune, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(string(r), n)
}
