// Package stats records the outcome of every run of the launched binary
// and formats the exit summary.
package stats

import (
	"maps"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Run is the outcome of one child process.
type Run struct {
	PID      int
	Code     int
	Killed   bool
	Result   string
	Lifetime time.Duration
	Ended    time.Time
}

// RunStats accumulates runs. It is safe for concurrent use.
type RunStats struct {
	mu        sync.Mutex
	startTime time.Time
	runs      int
	failures  int
	exitCodes map[int]int
	lifetimes *tdigest.TDigest // nanoseconds
	minLife   time.Duration
	maxLife   time.Duration
	last      Run
	hasLast   bool
}

// NewRunStats creates an empty RunStats.
func NewRunStats() *RunStats {
	return &RunStats{
		startTime: time.Now(),
		exitCodes: make(map[int]int),
		lifetimes: tdigest.NewWithCompression(100),
	}
}

// Record adds a finished run.
func (s *RunStats) Record(r Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs++
	if r.Code != 0 {
		s.failures++
	}
	s.exitCodes[r.Code]++
	s.lifetimes.Add(float64(r.Lifetime.Nanoseconds()), 1)

	if s.runs == 1 || r.Lifetime < s.minLife {
		s.minLife = r.Lifetime
	}
	if r.Lifetime > s.maxLife {
		s.maxLife = r.Lifetime
	}
	s.last = r
	s.hasLast = true
}

// Runs returns the number of recorded runs.
func (s *RunStats) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Last returns the most recent run.
func (s *RunStats) Last() (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

// Summary is a point-in-time view of RunStats.
type Summary struct {
	Duration  time.Duration
	Runs      int
	Failures  int
	Restarts  int
	ExitCodes map[int]int
	LastCode  int

	LifetimeMin time.Duration
	LifetimeP50 time.Duration
	LifetimeP95 time.Duration
	LifetimeP99 time.Duration
	LifetimeMax time.Duration
}

// Summary returns the current summary.
func (s *RunStats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		Duration:  time.Since(s.startTime),
		Runs:      s.runs,
		Failures:  s.failures,
		ExitCodes: maps.Clone(s.exitCodes),
		LastCode:  s.last.Code,
	}
	if s.runs > 1 {
		sum.Restarts = s.runs - 1
	}
	if s.runs > 0 {
		sum.LifetimeMin = s.minLife
		sum.LifetimeMax = s.maxLife
		sum.LifetimeP50 = s.quantile(0.50)
		sum.LifetimeP95 = s.quantile(0.95)
		sum.LifetimeP99 = s.quantile(0.99)
	}
	return sum
}

// quantile clamps the digest estimate to the observed range.
func (s *RunStats) quantile(q float64) time.Duration {
	d := time.Duration(s.lifetimes.Quantile(q))
	return min(max(d, s.minLife), s.maxLife)
}
