// Package monitor runs the one background task of a batch: sampling host
// resources on an interval and feeding the snapshots to the circuit
// breaker. The main processing loop stays single-threaded; this is the only
// concurrent flow, and the breaker's mutex is the only shared state.
package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/circuitbreaker"
	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// SnapshotProvider captures one resource snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.ResourceSnapshot, error)
}

// Gate receives snapshots; the circuit breaker is the production
// implementation.
type Gate interface {
	CanContinue(snap domain.ResourceSnapshot) error
}

// Config holds monitor settings.
type Config struct {
	// Interval between resource samples. Default: 5 seconds.
	Interval time.Duration
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{Interval: 5 * time.Second}
}

// Monitor periodically samples resources and reports them to the gate.
type Monitor struct {
	config   Config
	provider SnapshotProvider
	gate     Gate
}

// New creates a Monitor.
func New(config Config, provider SnapshotProvider, gate Gate) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Monitor{config: config, provider: provider, gate: gate}
}

// Run samples until ctx is cancelled. It blocks; callers start it as the
// batch's single background goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	log.Printf("monitor: started (interval=%s)", m.config.Interval)

	// Sample immediately on startup, then on ticker.
	m.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("monitor: stopped")
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	snap, err := m.provider.Snapshot(ctx)
	if err != nil {
		// Sampling errors are transient; next tick retries.
		log.Printf("monitor: snapshot failed: %v", err)
		return
	}

	if err := m.gate.CanContinue(snap); err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			log.Printf("monitor: %v (cpu=%.1f%% mem=%.1f%%)", err, snap.CPUPercent, snap.MemoryPercent)
			return
		}
		log.Printf("monitor: gate error: %v", err)
	}
}
