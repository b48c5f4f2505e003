// Package testutil provides shared test helpers for the batch processor.
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WriteSignal drops a completion signal file into dir the way an external
// script would. It fails the test on any write error.
func WriteSignal(t *testing.T, dir, fileName, project string, status domain.SignalStatus, sig domain.CompletionSignal) string {
	t.Helper()
	body, err := json.Marshal(sig)
	if err != nil {
		t.Fatalf("testutil: marshal signal: %v", err)
	}
	path := filepath.Join(dir, domain.SignalFileName(fileName, project, status))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("testutil: write signal: %v", err)
	}
	return path
}
