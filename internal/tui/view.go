package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-linux-launcher/internal/stats"
)

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderDashboard() string {
	sections := []string{
		m.renderHeader(),
		m.renderProcess(),
	}
	if m.maxRestarts > 0 {
		sections = append(sections, m.renderRestartBudget())
	}
	if m.summary.Runs > 0 {
		sections = append(sections, m.renderLifetimes())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" linux-launcher │ %s │ Runs: %d │ Elapsed: %s ",
		GetStateLabel(m.state),
		m.summary.Runs,
		stats.FormatDuration(m.Elapsed()),
	)
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Process Section
// =============================================================================

func (m Model) renderProcess() string {
	pid := "-"
	if m.pid > 0 {
		pid = strconv.Itoa(m.pid)
	}

	lines := []string{
		sectionHeaderStyle.Render("Process"),
		RenderKeyValue("Binary", m.binary),
		RenderKeyValue("PID", pid),
		RenderKeyValue("State", m.state.String()),
		RenderKeyValue("Uptime", stats.FormatDuration(m.Uptime())),
		RenderKeyValue("Restarts", strconv.Itoa(m.Restarts())),
	}

	if m.hasResult {
		label := strings.TrimSpace(m.lastResult + " " + stats.ExitCodeLabel(m.lastCode))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Last result:"),
			GetCodeStyle(m.lastCode).Render(fmt.Sprintf("%d %s", m.lastCode, label)),
		))
	}
	if m.state == ProcRestarting && m.nextDelay > 0 {
		lines = append(lines, statusWarning.Render("Restarting in "+stats.FormatLifetime(m.nextDelay)))
	}
	if m.lastAction != "" {
		lines = append(lines, statusInfo.Render(m.lastAction))
	}

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderRestartBudget() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render(fmt.Sprintf("Restart Budget (%d/%d)", m.Restarts(), m.maxRestarts)),
		RenderProgressBar(m.RestartProgress(), barWidth),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Lifetime Section
// =============================================================================

func (m Model) renderLifetimes() string {
	s := m.summary

	failures := valueGoodStyle.Render("0")
	if s.Failures > 0 {
		failures = valueBadStyle.Render(strconv.Itoa(s.Failures))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Process Lifetime"),
		RenderKeyValue("Runs", strconv.Itoa(s.Runs)),
		lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render("Failures:"), failures),
		RenderKeyValue("Min", stats.FormatLifetime(s.LifetimeMin)),
		RenderKeyValue("P50", stats.FormatLifetime(s.LifetimeP50)),
		RenderKeyValue("P95", stats.FormatLifetime(s.LifetimeP95)),
		RenderKeyValue("P99", stats.FormatLifetime(s.LifetimeP99)),
		RenderKeyValue("Max", stats.FormatLifetime(s.LifetimeMax)),
	)
	if m.rateSource != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			RenderKeyValue("Launches/min", fmt.Sprintf("%.2f %.2f %.2f", m.rates.Per1m, m.rates.Per5m, m.rates.Per15m)),
		)
	}
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"t: SIGTERM",
		"i: SIGINT",
		"k: SIGKILL",
		"h: SIGHUP",
		"q: quit",
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	right := ""
	if m.metricsAddr != "" {
		right = mutedStyle.Render("Metrics: " + m.metricsAddr)
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}
