// Package metrics provides Prometheus metrics for linux-launcher.
//
// The Collector receives launcher events (launches, exits, signals) and
// keeps one registry-scoped set of series per process:
//
//	launcher_launches_total{mode}
//	launcher_launch_failures_total{mode}
//	launcher_exits_total{kind}
//	launcher_exit_code_total{code}
//	launcher_signals_total{signal,result}
//	launcher_running_processes
//	launcher_process_lifetime_seconds
package metrics

import (
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-linux-launcher/internal/supervisor"
)

// Collector records launcher events as Prometheus metrics.
type Collector struct {
	launches       *prometheus.CounterVec
	launchFailures *prometheus.CounterVec
	exits          *prometheus.CounterVec
	exitCodes      *prometheus.CounterVec
	signals        *prometheus.CounterVec
	running        prometheus.Gauge
	lifetime       prometheus.Histogram
	info           *prometheus.GaugeVec

	mu          sync.Mutex
	startTime   time.Time
	peakRunning int
	nRunning    int
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Binary  string
	Mode    string
}

// NewCollector creates a collector on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		launches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_launches_total",
				Help: "Processes created, by launch mode",
			},
			[]string{"mode"},
		),
		launchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_launch_failures_total",
				Help: "Launches where no process could be created, by launch mode",
			},
			[]string{"mode"},
		),
		exits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_exits_total",
				Help: "Reaped processes, by termination kind (exited, killed)",
			},
			[]string{"kind"},
		),
		exitCodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_exit_code_total",
				Help: "Reaped processes, by normalized exit code",
			},
			[]string{"code"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_signals_total",
				Help: "Signal deliveries, by signal and result (ok, error)",
			},
			[]string{"signal", "result"},
		),
		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_running_processes",
				Help: "Processes launched and not yet reaped",
			},
		),
		lifetime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_process_lifetime_seconds",
				Help:    "Time from launch to reap",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms .. ~43min
			},
		),
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "launcher_info",
				Help: "Information about the launcher (value always 1)",
			},
			[]string{"version", "binary", "mode"},
		),
		startTime: time.Now(),
	}

	registry.MustRegister(
		c.launches,
		c.launchFailures,
		c.exits,
		c.exitCodes,
		c.signals,
		c.running,
		c.lifetime,
		c.info,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Binary, cfg.Mode).Set(1)
	return c
}

// Launched records a created process.
func (c *Collector) Launched(mode string) {
	c.launches.WithLabelValues(mode).Inc()
	c.running.Inc()

	c.mu.Lock()
	c.nRunning++
	if c.nRunning > c.peakRunning {
		c.peakRunning = c.nRunning
	}
	c.mu.Unlock()
}

// LaunchFailed records a launch that created no process.
func (c *Collector) LaunchFailed(mode string) {
	c.launchFailures.WithLabelValues(mode).Inc()
}

// Exited records a reaped process.
func (c *Collector) Exited(res supervisor.Result, lifetime time.Duration) {
	c.exits.WithLabelValues(res.Kind.String()).Inc()
	c.exitCodes.WithLabelValues(strconv.Itoa(res.Code())).Inc()
	c.lifetime.Observe(lifetime.Seconds())
	c.running.Dec()

	c.mu.Lock()
	c.nRunning--
	c.mu.Unlock()
}

// Signalled records a signal delivery attempt.
func (c *Collector) Signalled(sig syscall.Signal, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.signals.WithLabelValues(SignalLabel(sig), result).Inc()
}

// PeakRunning returns the highest number of concurrently running
// processes seen.
func (c *Collector) PeakRunning() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peakRunning
}

// Uptime returns how long the collector has existed.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}
