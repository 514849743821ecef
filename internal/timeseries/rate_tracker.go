// Package timeseries tracks how often the child is (re)launched over
// rolling time windows.
//
// A RateTracker counts events with an atomic counter and keeps one
// sample of the running total per RecordSample call in a ring buffer.
// Rates are reported in events per minute over the last 1, 5 and 15
// minutes, in the manner of a load average.
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// ringBufferSize covers the longest window at one sample per second.
	ringBufferSize = 900

	window1m  = 1 * time.Minute
	window5m  = 5 * time.Minute
	window15m = 15 * time.Minute
)

// Clock interface for testing with deterministic time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type sample struct {
	timestamp time.Time
	count     int64
}

// RateTracker counts events and reports rolling rates.
type RateTracker struct {
	total atomic.Int64

	samples  []sample
	writeIdx int
	mu       sync.RWMutex

	startTime time.Time
	clock     Clock
}

// Rates is a point-in-time view of a RateTracker. All rates are events
// per minute.
type Rates struct {
	Total   int64
	Per1m   float64
	Per5m   float64
	Per15m  float64
	Overall float64
}

// NewRateTracker creates a tracker on the real clock.
func NewRateTracker() *RateTracker {
	return NewRateTrackerWithClock(realClock{})
}

// NewRateTrackerWithClock creates a tracker with custom clock for testing.
func NewRateTrackerWithClock(clock Clock) *RateTracker {
	now := clock.Now()
	t := &RateTracker{
		samples:   make([]sample, 0, ringBufferSize),
		startTime: now,
		clock:     clock,
	}
	t.samples = append(t.samples, sample{timestamp: now})
	return t
}

// Add counts n events. Non-positive n is ignored.
func (t *RateTracker) Add(n int64) {
	if n > 0 {
		t.total.Add(n)
	}
}

// RecordSample stores the current total. Call it about once per second.
func (t *RateTracker) RecordSample() {
	s := sample{timestamp: t.clock.Now(), count: t.total.Load()}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) < ringBufferSize {
		t.samples = append(t.samples, s)
		return
	}
	t.samples[t.writeIdx] = s
	t.writeIdx = (t.writeIdx + 1) % ringBufferSize
}

// Rates computes the current rolling rates.
func (t *RateTracker) Rates() Rates {
	now := t.clock.Now()
	total := t.total.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	r := Rates{Total: total}
	if elapsed := now.Sub(t.startTime); elapsed > 0 {
		r.Overall = float64(total) / elapsed.Minutes()
	}
	r.Per1m = t.rateOver(now, total, window1m)
	r.Per5m = t.rateOver(now, total, window5m)
	r.Per15m = t.rateOver(now, total, window15m)
	return r
}

// rateOver returns events per minute since the sample nearest to (but
// not after) now-window, or the oldest sample when history is shorter.
// Must be called with mu held.
func (t *RateTracker) rateOver(now time.Time, total int64, window time.Duration) float64 {
	target := now.Add(-window)

	var best *sample
	for i := range t.samples {
		s := &t.samples[i]
		if s.timestamp.After(target) {
			continue
		}
		if best == nil || s.timestamp.After(best.timestamp) {
			best = s
		}
	}
	if best == nil {
		best = t.oldest()
	}

	elapsed := now.Sub(best.timestamp)
	if elapsed <= 0 {
		return 0
	}
	return float64(total-best.count) / elapsed.Minutes()
}

// oldest returns the oldest retained sample. Must be called with mu held.
func (t *RateTracker) oldest() *sample {
	if len(t.samples) < ringBufferSize {
		return &t.samples[0]
	}
	return &t.samples[t.writeIdx]
}

// SampleCount returns the number of retained samples.
func (t *RateTracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}
