package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
	"github.com/marco-teran27/BatchProcessor/internal/testutil"
)

func healthy() domain.ResourceSnapshot {
	return domain.ResourceSnapshot{CPUPercent: 20, MemoryPercent: 30}
}

func cpuBreach() domain.ResourceSnapshot {
	return domain.ResourceSnapshot{CPUPercent: 95, MemoryPercent: 30}
}

func TestCanContinue_HealthySnapshot_Allowed(t *testing.T) {
	b := New(Config{})
	if err := b.CanContinue(healthy()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if b.IsOpen() {
		t.Fatal("breaker should be closed")
	}
}

func TestCanContinue_BreachesBelowThreshold_StillAllowed(t *testing.T) {
	b := New(Config{FailureThreshold: 3})
	for i := 0; i < 2; i++ {
		if err := b.CanContinue(cpuBreach()); err != nil {
			t.Fatalf("breach %d: expected nil, got %v", i+1, err)
		}
	}
	if b.IsOpen() {
		t.Fatal("breaker should still be closed below threshold")
	}
	if got := b.FailureCount(); got != 2 {
		t.Fatalf("FailureCount = %d, want 2", got)
	}
}

func TestCanContinue_ThresholdBreaches_Opens(t *testing.T) {
	b := New(Config{FailureThreshold: 3})
	var err error
	for i := 0; i < 3; i++ {
		err = b.CanContinue(cpuBreach())
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen on opening breach, got %v", err)
	}
	if !b.IsOpen() {
		t.Fatal("breaker should be open at threshold")
	}
}

func TestCanContinue_MemoryBreachCounts(t *testing.T) {
	b := New(Config{FailureThreshold: 1})
	err := b.CanContinue(domain.ResourceSnapshot{CPUPercent: 10, MemoryPercent: 90})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCanContinue_CleanSnapshotResetsCount(t *testing.T) {
	b := New(Config{FailureThreshold: 3})
	b.CanContinue(cpuBreach())
	b.CanContinue(cpuBreach())
	b.CanContinue(healthy())
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("FailureCount after clean snapshot = %d, want 0", got)
	}
}

func TestRecordFailure_OpensAtThreshold(t *testing.T) {
	b := New(Config{})
	for i := 0; i < 5; i++ {
		b.RecordFailure("cpu pressure")
	}
	if !b.IsOpen() {
		t.Fatal("breaker should open after 5 recorded failures")
	}
}

func TestCanContinue_OpenWithinCooldown_Blocked(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	b := New(Config{FailureThreshold: 1, ResetTimeout: time.Minute})
	b.clock = clock.Now

	b.CanContinue(cpuBreach())
	if !b.IsOpen() {
		t.Fatal("breaker should be open")
	}

	clock.Advance(30 * time.Second)
	if err := b.CanContinue(healthy()); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen inside cool-down, got %v", err)
	}
	// Blocked checks must not count as further failures.
	if got := b.FailureCount(); got != 1 {
		t.Fatalf("FailureCount = %d, want 1", got)
	}
}

func TestCanContinue_OpenAfterCooldown_ResetsAndAllows(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	b := New(Config{FailureThreshold: 1, ResetTimeout: time.Minute})
	b.clock = clock.Now

	b.CanContinue(cpuBreach())
	clock.Advance(61 * time.Second)

	if err := b.CanContinue(healthy()); err != nil {
		t.Fatalf("expected nil after cool-down, got %v", err)
	}
	if b.IsOpen() {
		t.Fatal("breaker should be closed after cool-down reset")
	}
	if got := b.FailureCount(); got != 0 {
		t.Fatalf("FailureCount after reset = %d, want 0", got)
	}
}

func TestReset_ClearsStateAtomically(t *testing.T) {
	b := New(Config{FailureThreshold: 1})
	b.CanContinue(cpuBreach())
	b.Reset()
	if b.IsOpen() || b.FailureCount() != 0 {
		t.Fatal("Reset should close the circuit and clear the count")
	}
}
