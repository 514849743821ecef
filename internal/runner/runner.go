// Package runner drives one launch end to end, from preflight checks to
// the exit summary.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-linux-launcher/internal/config"
	"github.com/randomizedcoder/go-linux-launcher/internal/launcher"
	"github.com/randomizedcoder/go-linux-launcher/internal/metrics"
	"github.com/randomizedcoder/go-linux-launcher/internal/preflight"
	"github.com/randomizedcoder/go-linux-launcher/internal/ptyio"
	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
	"github.com/randomizedcoder/go-linux-launcher/internal/stats"
	"github.com/randomizedcoder/go-linux-launcher/internal/supervisor"
	"github.com/randomizedcoder/go-linux-launcher/internal/timeseries"
	"github.com/randomizedcoder/go-linux-launcher/internal/tui"
)

const (
	// ptyDrainTimeout bounds how long child output is copied after the
	// child exits.
	ptyDrainTimeout = 200 * time.Millisecond

	shutdownTimeout = 5 * time.Second

	rateSampleInterval = time.Second
)

// Options configures a Runner.
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Version string

	// Executable overrides the binary re-executed for every child.
	// Defaults to the running executable.
	Executable string

	// Stdout receives the exit summary and the metrics dump, Stderr the
	// preflight report. Default: os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Seed for restart jitter. Zero uses the current time.
	Seed int64
}

// Runner launches the configured target and supervises it until it is
// done for good.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	target     Target
	stopSignal syscall.Signal
	stdout     io.Writer
	stderr     io.Writer

	registry  *prometheus.Registry
	collector *metrics.Collector
	launcher  *launcher.Launcher
	runs      *stats.RunStats
	launches  *timeseries.RateTracker
	backoff   *Backoff

	metricsAddr string
	program     *tea.Program
	programDone chan struct{}

	stopping atomic.Bool
}

// New resolves the target and builds the launcher. It starts nothing.
func New(opts Options) (*Runner, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("runner: nil config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	target, err := ResolveTarget(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}
	stopSignal, err := config.ParseSignal(cfg.StopSignal)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version: opts.Version,
		Binary:  target.Binary,
		Mode:    target.Mode(),
	}, registry)

	l, err := launcher.New(launcher.Options{
		Spawn: spawn.Options{
			Logger:     logger,
			Executable: opts.Executable,
			LogSink:    cfg.LogSink,
			LogFormat:  cfg.LogFormat,
			LogLevel:   cfg.LogLevel,
		},
		Logger:   logger,
		Recorder: collector,
	})
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	r := &Runner{
		cfg:        cfg,
		logger:     logger,
		target:     target,
		stopSignal: stopSignal,
		stdout:     opts.Stdout,
		stderr:     opts.Stderr,
		registry:   registry,
		collector:  collector,
		launcher:   l,
		runs:       stats.NewRunStats(),
		launches:   timeseries.NewRateTracker(),
		backoff: NewBackoff(seed, BackoffConfig{
			Initial:    cfg.BackoffInitial,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiply,
			JitterPct:  DefaultBackoffConfig().JitterPct,
		}),
	}
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	return r, nil
}

// Target returns the resolved launch target.
func (r *Runner) Target() Target {
	return r.target
}

// Stats returns the per-run statistics.
func (r *Runner) Stats() *stats.RunStats {
	return r.runs
}

// LaunchRates returns the rolling launch rates.
func (r *Runner) LaunchRates() timeseries.Rates {
	return r.launches.Rates()
}

// Gatherer returns the registry holding the launcher metrics.
func (r *Runner) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Run launches the target, restarting it per the configured policy, and
// returns the last normalized exit code. Cancelling ctx stops the child
// the same way a forwarded SIGTERM does.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if !r.cfg.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Binary:      r.target.Binary,
			Linker:      r.target.Linker,
			LibraryPath: r.target.LibraryPath,
			Self:        r.launcher.Executable(),
			TTY:         r.cfg.TTY,
		})
		preflight.PrintResults(r.stderr, result)
		if !result.Passed {
			return 1, errors.New("preflight checks failed (use --skip-preflight to override)")
		}
	}

	if r.cfg.MetricsAddr != "" {
		srv := metrics.NewServer(r.cfg.MetricsAddr, r.registry, r.logger)
		if err := srv.Start(); err != nil {
			return 1, fmt.Errorf("failed to start metrics server: %w", err)
		}
		r.metricsAddr = srv.Addr()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				r.logger.Warn("metrics_server_shutdown_error", "error", err)
			}
		}()
	}

	stdio, closeStdio, err := r.openStdio()
	if err != nil {
		return 1, err
	}
	defer closeStdio()

	sigCh := make(chan os.Signal, 4)
	for _, sig := range forwardedSignals {
		signal.Notify(sigCh, sig)
	}
	defer signal.Stop(sigCh)

	sampleCtx, stopSampling := context.WithCancel(context.Background())
	defer stopSampling()
	go r.sampleRates(sampleCtx)

	if r.cfg.TUIEnabled {
		r.startTUI()
	}

	code, err := r.loop(ctx, stdio, sigCh)

	r.stopTUI()
	r.finish()
	return code, err
}

func (r *Runner) loop(ctx context.Context, stdio spawn.Stdio, sigCh <-chan os.Signal) (int, error) {
	for {
		run, err := r.runOnce(ctx, stdio, sigCh)
		if err != nil {
			r.logger.Error("run_failed", "binary", r.target.Binary, "error", err)
			return 1, err
		}
		r.runs.Record(run)
		tui.SendExited(r.program, run.PID, run.Code, run.Result)

		if !r.shouldRestart(ctx, run.Code) {
			return run.Code, nil
		}

		if ShouldReset(run.Lifetime, run.Code) {
			r.backoff.Reset()
		}
		delay := r.backoff.Next()
		r.logger.Info("restart_scheduled",
			"binary", r.target.Binary,
			"attempt", r.runs.Runs(),
			"delay", delay.String(),
		)
		tui.SendRestarting(r.program, delay)

		if !r.sleep(ctx, delay, sigCh) {
			return run.Code, nil
		}
	}
}

func (r *Runner) shouldRestart(ctx context.Context, code int) bool {
	if r.stopping.Load() || ctx.Err() != nil {
		return false
	}
	if !ShouldRestart(r.cfg.Restart, code) {
		return false
	}
	if restarts := r.runs.Runs() - 1; r.cfg.MaxRestarts > 0 && restarts >= r.cfg.MaxRestarts {
		r.logger.Warn("max_restarts_reached",
			"binary", r.target.Binary,
			"restarts", restarts,
			"max", r.cfg.MaxRestarts,
		)
		return false
	}
	return true
}

// sleep waits out a restart delay. It returns false when the launcher was
// asked to stop meanwhile.
func (r *Runner) sleep(ctx context.Context, delay time.Duration, sigCh <-chan os.Signal) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case sig := <-sigCh:
			if s, ok := sig.(syscall.Signal); ok && stopsRestarts(s) {
				r.logger.Info("received_signal", "signal", s.String(), "state", "backoff")
				r.stopping.Store(true)
				return false
			}
		}
	}
}

type waitResult struct {
	res supervisor.Result
	err error
}

// runOnce starts one child and blocks until it has been reaped.
func (r *Runner) runOnce(ctx context.Context, stdio spawn.Stdio, sigCh <-chan os.Signal) (stats.Run, error) {
	var session *ptyio.Session
	if r.cfg.TTY {
		s, err := ptyio.Open(r.logger)
		if err != nil {
			return stats.Run{}, err
		}
		defer s.Close()
		session = s
		stdio = s.Stdio()
	}

	pid, err := r.start(stdio, session != nil)
	if err != nil {
		return stats.Run{}, err
	}
	r.launches.Add(1)
	started, ok := r.launcher.StartedAt(pid)
	if !ok {
		started = time.Now()
	}
	tui.SendStarted(r.program, pid, started)

	var attachDone chan error
	if session != nil {
		if err := session.CloseSlave(); err != nil {
			r.logger.Debug("pty_slave_close_failed", "error", err)
		}
		attachCtx, cancelAttach := context.WithCancel(context.Background())
		defer cancelAttach()
		attachDone = make(chan error, 1)
		go func() {
			attachDone <- session.Attach(attachCtx, os.Stdin, os.Stdout)
		}()
	}

	done := make(chan waitResult, 1)
	go func() {
		res, err := r.launcher.Wait(pid)
		done <- waitResult{res: res, err: err}
	}()

	var timeout, kill <-chan time.Time
	if r.cfg.Timeout > 0 {
		t := time.NewTimer(r.cfg.Timeout)
		defer t.Stop()
		timeout = t.C
	}
	ctxDone := ctx.Done()

	for {
		select {
		case w := <-done:
			if attachDone != nil {
				select {
				case err := <-attachDone:
					if err != nil {
						r.logger.Debug("pty_attach_ended", "error", err)
					}
				case <-time.After(ptyDrainTimeout):
				}
			}
			if w.err != nil {
				return stats.Run{PID: pid, Code: supervisor.WaitFailed}, fmt.Errorf("wait for pid %d: %w", pid, w.err)
			}
			run := stats.Run{
				PID:      pid,
				Code:     w.res.Code(),
				Killed:   w.res.Kind == supervisor.KindKilled,
				Result:   w.res.String(),
				Lifetime: time.Since(started),
				Ended:    time.Now(),
			}
			r.logger.Info("process_exited",
				"pid", pid,
				"result", run.Result,
				"code", run.Code,
				"lifetime", run.Lifetime.String(),
			)
			return run, nil

		case sig := <-sigCh:
			r.forward(pid, sig)

		case <-timeout:
			timeout = nil
			r.logger.Warn("timeout_reached", "pid", pid, "timeout", r.cfg.Timeout.String())
			r.stopping.Store(true)
			kill = r.terminate(pid)

		case <-ctxDone:
			ctxDone = nil
			r.stopping.Store(true)
			kill = r.terminate(pid)

		case <-kill:
			kill = nil
			r.logger.Warn("force_killing_process", "pid", pid, "kill_after", r.cfg.KillAfter.String())
			r.launcher.Signal(pid, syscall.SIGKILL)
		}
	}
}

func (r *Runner) start(stdio spawn.Stdio, ctty bool) (int, error) {
	if r.target.Linker != "" {
		req := r.target.LinkerRequest(stdio)
		req.NewProcessGroup = r.cfg.NewProcessGroup
		req.ControllingTerminal = ctty
		return r.launcher.StartViaLinker(req)
	}
	req := r.target.Request(stdio)
	req.NewProcessGroup = r.cfg.NewProcessGroup
	req.ControllingTerminal = ctty
	return r.launcher.Start(req)
}

// terminate sends the stop signal and returns the channel that fires when
// the child should be killed.
func (r *Runner) terminate(pid int) <-chan time.Time {
	r.logger.Info("stopping_process", "pid", pid, "signal", r.stopSignal.String())
	r.launcher.Signal(pid, r.stopSignal)
	return time.After(r.cfg.KillAfter)
}

func (r *Runner) forward(pid int, sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	if stopsRestarts(s) {
		r.stopping.Store(true)
	}
	r.logger.Info("forwarding_signal", "pid", pid, "signal", s.String())
	if !r.launcher.Signal(pid, s) {
		r.logger.Debug("forward_failed", "pid", pid, "signal", s.String())
	}
}

// openStdio opens the child's standard streams. The dashboard owns the
// terminal, so with --tui the child gets /dev/null for whatever --output
// does not cover.
func (r *Runner) openStdio() (spawn.Stdio, func(), error) {
	var (
		stdio spawn.Stdio
		files []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	if r.cfg.TUIEnabled {
		null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return stdio, closeAll, fmt.Errorf("open %s: %w", os.DevNull, err)
		}
		files = append(files, null)
		stdio = spawn.Stdio{Stdin: null, Stdout: null, Stderr: null}
	}

	if r.cfg.Output != "" {
		f, err := os.OpenFile(r.cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			closeAll()
			return spawn.Stdio{}, func() {}, fmt.Errorf("open output: %w", err)
		}
		files = append(files, f)
		stdio.Stdout = f
		stdio.Stderr = f
	}

	return stdio, closeAll, nil
}

func (r *Runner) sampleRates(ctx context.Context) {
	ticker := time.NewTicker(rateSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.launches.RecordSample()
		}
	}
}

func (r *Runner) startTUI() {
	model := tui.New(tui.Config{
		Binary:      r.target.Binary,
		MetricsAddr: r.metricsAddr,
		MaxRestarts: r.cfg.MaxRestarts,
		Signaler:    r.launcher,
		StatsSource: r.runs,
		RateSource:  r.launches,
	})
	r.program = tea.NewProgram(model, tea.WithAltScreen())
	r.programDone = make(chan struct{})

	go func() {
		defer close(r.programDone)
		if _, err := r.program.Run(); err != nil {
			r.logger.Error("tui_failed", "error", err)
		}
	}()
}

func (r *Runner) stopTUI() {
	if r.program == nil {
		return
	}
	tui.SendQuit(r.program)
	<-r.programDone
	r.program = nil
}

// finish writes the metrics dump and, after more than one run, the exit
// summary.
func (r *Runner) finish() {
	if r.cfg.MetricsDump {
		if err := metrics.Dump(r.stdout, r.registry); err != nil {
			r.logger.Warn("metrics_dump_failed", "error", err)
		}
	}

	sum := r.runs.Summary()
	if sum.Runs > 1 {
		fmt.Fprint(r.stdout, stats.FormatSummary(sum, stats.SummaryConfig{
			Binary:      r.target.Binary,
			MetricsAddr: r.metricsAddr,
		}))
	}
}
