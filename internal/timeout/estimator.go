// Package timeout derives per-operation timeouts from recent history.
//
// Fixed timeouts are either too tight for heavy model files or waste hours
// on files that have already hung. The estimator keeps a small rolling
// window of observed durations per operation key and sizes the next timeout
// from their mean plus a safety buffer, falling back to a fixed default
// until enough samples exist.
package timeout

import "time"

// Config holds estimator tuning. Zero fields take defaults from DefaultConfig.
type Config struct {
	// Default is returned until MinSamples successful durations exist for a key.
	Default time.Duration

	// MinSamples is the number of recorded durations required before the
	// adaptive estimate is used.
	MinSamples int

	// BufferFactor scales the rolling mean into a timeout.
	BufferFactor float64

	// MaxSamples bounds the history kept per key; older samples are dropped.
	MaxSamples int

	// MaxAge evicts samples lazily on each write once they are older than this.
	MaxAge time.Duration
}

// DefaultConfig returns the default estimator configuration.
func DefaultConfig() Config {
	return Config{
		Default:      8 * time.Minute,
		MinSamples:   3,
		BufferFactor: 1.5,
		MaxSamples:   5,
		MaxAge:       24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Default <= 0 {
		c.Default = d.Default
	}
	if c.MinSamples <= 0 {
		c.MinSamples = d.MinSamples
	}
	if c.BufferFactor <= 0 {
		c.BufferFactor = d.BufferFactor
	}
	if c.MaxSamples <= 0 {
		c.MaxSamples = d.MaxSamples
	}
	if c.MaxAge <= 0 {
		c.MaxAge = d.MaxAge
	}
	return c
}

type sample struct {
	duration   time.Duration
	recordedAt time.Time
}

// Estimator computes adaptive timeouts from a bounded rolling history of
// observed durations. It never fails; with insufficient history it degrades
// to the configured default. State is owned by the main processing flow and
// needs no locking.
type Estimator struct {
	config  Config
	history map[string][]sample
	clock   func() time.Time
}

// New creates an Estimator.
func New(config Config) *Estimator {
	return &Estimator{
		config:  config.withDefaults(),
		history: make(map[string][]sample),
		clock:   time.Now,
	}
}

// Calculate returns the timeout to apply to the next operation under key.
func (e *Estimator) Calculate(key string) time.Duration {
	samples := e.history[key]
	if len(samples) < e.config.MinSamples {
		return e.config.Default
	}

	var total time.Duration
	for _, s := range samples {
		total += s.duration
	}
	mean := float64(total) / float64(len(samples))
	return time.Duration(mean * e.config.BufferFactor)
}

// Record stores an observed successful duration for key. Entries older than
// MaxAge are evicted and the history is trimmed to the MaxSamples most
// recent entries.
func (e *Estimator) Record(key string, d time.Duration) {
	now := e.clock()
	cutoff := now.Add(-e.config.MaxAge)

	samples := e.history[key][:0:len(e.history[key])]
	for _, s := range e.history[key] {
		if s.recordedAt.After(cutoff) {
			samples = append(samples, s)
		}
	}

	samples = append(samples, sample{duration: d, recordedAt: now})
	if len(samples) > e.config.MaxSamples {
		samples = samples[len(samples)-e.config.MaxSamples:]
	}
	e.history[key] = samples
}

// SampleCount reports how many durations are currently held for key.
func (e *Estimator) SampleCount(key string) int {
	return len(e.history[key])
}
