package runner

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig controls the delay between restarts of the child.
type BackoffConfig struct {
	Initial    time.Duration // first delay (default: 250ms)
	Max        time.Duration // cap (default: 5s)
	Multiplier float64       // growth per attempt (default: 1.7)
	JitterPct  float64       // total jitter window as a fraction of the delay (default: 0.4 = ±20%)
}

// DefaultBackoffConfig returns the restart backoff defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    250 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 1.7,
		JitterPct:  0.4,
	}
}

// Backoff computes exponential restart delays with seeded jitter.
type Backoff struct {
	config   BackoffConfig
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a Backoff. The same seed yields the same jitter
// sequence.
func NewBackoff(seed int64, cfg BackoffConfig) *Backoff {
	return &Backoff{
		config: cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Next returns the delay for the current attempt and advances.
func (b *Backoff) Next() time.Duration {
	delay := b.Calculate()
	b.attempts++
	return delay
}

// Calculate returns the delay for the current attempt.
func (b *Backoff) Calculate() time.Duration {
	delay := float64(b.config.Initial) * math.Pow(b.config.Multiplier, float64(b.attempts))
	if delay > float64(b.config.Max) {
		delay = float64(b.config.Max)
	}

	if b.config.JitterPct > 0 {
		window := delay * b.config.JitterPct
		delay += window*b.rng.Float64() - window/2
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Reset starts the sequence over.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

// StableUptime is how long a child must run before its next failure is
// treated as fresh rather than part of a crash loop.
const StableUptime = 30 * time.Second

// ShouldReset reports whether the backoff sequence restarts after a run
// that lasted uptime and ended with code.
func ShouldReset(uptime time.Duration, code int) bool {
	return uptime >= StableUptime || code == 0
}
