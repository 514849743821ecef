package tui

import (
	"fmt"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-linux-launcher/internal/stats"
	"github.com/randomizedcoder/go-linux-launcher/internal/timeseries"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// StartedMsg reports a newly launched child.
type StartedMsg struct {
	PID int
	At  time.Time
}

// ExitedMsg reports that the current child terminated.
type ExitedMsg struct {
	PID    int
	Code   int
	Result string
}

// RestartingMsg reports that a restart is scheduled after Delay.
type RestartingMsg struct {
	Delay time.Duration
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Process State
// =============================================================================

// ProcState is the lifecycle state of the child as shown on the dashboard.
type ProcState int

const (
	ProcStarting ProcState = iota
	ProcRunning
	ProcExited
	ProcRestarting
)

func (s ProcState) String() string {
	switch s {
	case ProcStarting:
		return "starting"
	case ProcRunning:
		return "running"
	case ProcExited:
		return "exited"
	case ProcRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// keySignals maps dashboard keys to the signal they send.
var keySignals = map[string]struct {
	sig  syscall.Signal
	name string
}{
	"t": {syscall.SIGTERM, "SIGTERM"},
	"i": {syscall.SIGINT, "SIGINT"},
	"k": {syscall.SIGKILL, "SIGKILL"},
	"h": {syscall.SIGHUP, "SIGHUP"},
}

// =============================================================================
// Model
// =============================================================================

// Signaler delivers a signal to a launched child.
type Signaler interface {
	Signal(pid int, sig syscall.Signal) bool
}

// StatsSource provides the run summary.
type StatsSource interface {
	Summary() stats.Summary
}

// RateSource provides rolling launch rates.
type RateSource interface {
	Rates() timeseries.Rates
}

// Config holds TUI configuration.
type Config struct {
	Binary      string
	MetricsAddr string
	MaxRestarts int
	Signaler    Signaler
	StatsSource StatsSource
	RateSource  RateSource // optional
}

// Model represents the TUI state.
type Model struct {
	binary      string
	metricsAddr string
	maxRestarts int

	signaler    Signaler
	statsSource StatsSource
	rateSource  RateSource

	state      ProcState
	pid        int
	started    time.Time
	lastCode   int
	lastResult string
	hasResult  bool
	nextDelay  time.Duration
	summary    stats.Summary
	rates      timeseries.Rates
	lastAction string

	startTime  time.Time
	lastUpdate time.Time

	width  int
	height int

	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	m := Model{
		binary:      cfg.Binary,
		metricsAddr: cfg.MetricsAddr,
		maxRestarts: cfg.MaxRestarts,
		signaler:    cfg.Signaler,
		statsSource: cfg.StatsSource,
		rateSource:  cfg.RateSource,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		width:       80,
		height:      24,
	}
	m.refresh()
	return m
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		if ks, ok := keySignals[key]; ok {
			m.lastAction = m.sendSignal(ks.sig, ks.name)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		return m, tickCmd()

	case StartedMsg:
		m.state = ProcRunning
		m.pid = msg.PID
		m.started = msg.At
		m.nextDelay = 0
		m.lastAction = ""
		m.refresh()
		return m, nil

	case ExitedMsg:
		if msg.PID != m.pid {
			return m, nil
		}
		m.state = ProcExited
		m.lastCode = msg.Code
		m.lastResult = msg.Result
		m.hasResult = true
		m.refresh()
		return m, nil

	case RestartingMsg:
		m.state = ProcRestarting
		m.nextDelay = msg.Delay
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m *Model) refresh() {
	if m.statsSource != nil {
		m.summary = m.statsSource.Summary()
	}
	if m.rateSource != nil {
		m.rates = m.rateSource.Rates()
	}
	m.lastUpdate = time.Now()
}

func (m Model) sendSignal(sig syscall.Signal, name string) string {
	if m.state != ProcRunning || m.pid <= 0 {
		return "no running process"
	}
	if m.signaler == nil || !m.signaler.Signal(m.pid, sig) {
		return fmt.Sprintf("%s to %d failed", name, m.pid)
	}
	return fmt.Sprintf("sent %s to %d", name, m.pid)
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Uptime returns how long the current child has been running.
func (m Model) Uptime() time.Duration {
	if m.state != ProcRunning || m.started.IsZero() {
		return 0
	}
	return time.Since(m.started)
}

// State returns the displayed process state.
func (m Model) State() ProcState {
	return m.state
}

// PID returns the pid of the current child, or 0 before the first launch.
func (m Model) PID() int {
	return m.pid
}

// Restarts returns the number of restarts so far.
func (m Model) Restarts() int {
	return m.summary.Restarts
}

// RestartProgress returns the used share of the restart budget (0.0 to 1.0).
func (m Model) RestartProgress() float64 {
	if m.maxRestarts <= 0 {
		return 0
	}
	return float64(m.Restarts()) / float64(m.maxRestarts)
}

// LastAction returns the outcome of the most recent key-triggered signal.
func (m Model) LastAction() string {
	return m.lastAction
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendStarted reports a launched child to the TUI.
func SendStarted(p *tea.Program, pid int, at time.Time) {
	if p != nil {
		p.Send(StartedMsg{PID: pid, At: at})
	}
}

// SendExited reports a terminated child to the TUI.
func SendExited(p *tea.Program, pid, code int, result string) {
	if p != nil {
		p.Send(ExitedMsg{PID: pid, Code: code, Result: result})
	}
}

// SendRestarting reports a scheduled restart to the TUI.
func SendRestarting(p *tea.Program, delay time.Duration) {
	if p != nil {
		p.Send(RestartingMsg{Delay: delay})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}
