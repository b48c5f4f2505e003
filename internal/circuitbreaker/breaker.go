// Package circuitbreaker halts batch work under sustained resource pressure.
//
// The breaker counts consecutive resource-threshold breaches. Once the
// configured number of breaches is reached it opens, and stays open until
// the reset timeout elapses. A clean snapshot while closed clears the
// breach count.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds breaker tuning. Zero fields take defaults from DefaultConfig.
type Config struct {
	// CPUThreshold is the CPU usage percentage treated as a breach.
	CPUThreshold float64
	// MemoryThreshold is the memory usage percentage treated as a breach.
	MemoryThreshold float64
	// FailureThreshold is the consecutive breach count that opens the circuit.
	FailureThreshold int
	// ResetTimeout is the cool-down before an open circuit closes again.
	ResetTimeout time.Duration
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		CPUThreshold:     90,
		MemoryThreshold:  85,
		FailureThreshold: 5,
		ResetTimeout:     5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CPUThreshold <= 0 {
		c.CPUThreshold = d.CPUThreshold
	}
	if c.MemoryThreshold <= 0 {
		c.MemoryThreshold = d.MemoryThreshold
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = d.ResetTimeout
	}
	return c
}

// Breaker is the one component mutated from two logical flows (the main
// processing loop and the background monitor), so every method takes the
// single mutex. There is exactly one Breaker per batch run.
type Breaker struct {
	mu     sync.Mutex
	config Config
	clock  func() time.Time

	failureCount int
	lastFailure  time.Time
	open         bool
}

// New creates a Breaker.
func New(config Config) *Breaker {
	return &Breaker{
		config: config.withDefaults(),
		clock:  time.Now,
	}
}

// CanContinue checks whether work may proceed given the snapshot.
//
// An open circuit whose reset timeout has elapsed closes and allows work.
// An open circuit inside the cool-down returns ErrCircuitOpen without
// counting further failures. A closed circuit compares the snapshot against
// the thresholds: a breach is recorded, a clean snapshot clears the count.
func (b *Breaker) CanContinue(snap domain.ResourceSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		if b.clock().Sub(b.lastFailure) >= b.config.ResetTimeout {
			b.resetLocked()
			return nil
		}
		remaining := b.config.ResetTimeout - b.clock().Sub(b.lastFailure)
		return fmt.Errorf("%w: cool-down ends in %s", ErrCircuitOpen, remaining.Round(time.Second))
	}

	if reason := b.breach(snap); reason != "" {
		b.recordFailureLocked()
		if b.open {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, reason)
		}
		return nil
	}

	b.failureCount = 0
	return nil
}

func (b *Breaker) breach(snap domain.ResourceSnapshot) string {
	if snap.CPUPercent >= b.config.CPUThreshold {
		return fmt.Sprintf("cpu %.1f%% >= %.1f%%", snap.CPUPercent, b.config.CPUThreshold)
	}
	if snap.MemoryPercent >= b.config.MemoryThreshold {
		return fmt.Sprintf("memory %.1f%% >= %.1f%%", snap.MemoryPercent, b.config.MemoryThreshold)
	}
	return ""
}

// RecordFailure counts one breach and opens the circuit at the threshold.
func (b *Breaker) RecordFailure(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordFailureLocked()
	if b.open {
		log.Printf("circuitbreaker: open after %d consecutive breaches (last: %s)", b.failureCount, reason)
	}
}

func (b *Breaker) recordFailureLocked() {
	b.failureCount++
	b.lastFailure = b.clock()
	if b.failureCount >= b.config.FailureThreshold {
		b.open = true
	}
}

// Reset closes the circuit and clears the breach count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Breaker) resetLocked() {
	b.failureCount = 0
	b.lastFailure = time.Time{}
	b.open = false
}

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// FailureCount reports the current consecutive breach count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}
