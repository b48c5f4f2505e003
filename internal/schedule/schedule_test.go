package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestParse_Expressions(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"nightly", "0 2 * * *", false},
		{"every 15 minutes", "*/15 * * * *", false},
		{"weekdays", "0 6 * * 1-5", false},
		{"four fields", "* * * *", true},
		{"six fields", "* * * * * *", true},
		{"invalid hour", "0 25 * * *", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr, "UTC")
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestParse_Timezones(t *testing.T) {
	if _, err := Parse("0 2 * * *", "Invalid/Zone"); err == nil {
		t.Fatal("expected error for bad timezone")
	}
	sched, err := Parse("0 2 * * *", "")
	if err != nil {
		t.Fatalf("Parse with empty timezone: %v", err)
	}

	// Empty timezone means UTC.
	after := time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)
	if got, want := sched.Next(after), time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", after, got, want)
	}
}

func TestNext(t *testing.T) {
	sched, err := Parse("0 2 * * *", "UTC")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	after := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	if got, want := sched.Next(after), time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", after, got, want)
	}
}

func TestNext_TimezoneShiftsUTCInstant(t *testing.T) {
	tokyo, err := Parse("0 10 * * *", "Asia/Tokyo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	newYork, err := Parse("0 10 * * *", "America/New_York")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ref := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !tokyo.Next(ref).Before(newYork.Next(ref)) {
		t.Error("10:00 JST should come before 10:00 EDT on the same day")
	}
}

// shortSource fires a fixed interval after every reference instant.
type shortSource struct{ interval time.Duration }

func (s shortSource) Next(after time.Time) time.Time { return after.Add(s.interval) }

func TestRunner_FiresUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		NewRunner(shortSource{interval: 5 * time.Millisecond}).Run(ctx, func(ctx context.Context) {
			if runs.Add(1) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancellation")
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3 (no run after cancellation)", got)
	}
}

func TestRunner_NoJobAfterImmediateCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var runs atomic.Int32
	NewRunner(shortSource{interval: time.Minute}).Run(ctx, func(ctx context.Context) {
		runs.Add(1)
	})
	if runs.Load() != 0 {
		t.Fatal("job must not fire after cancellation")
	}
}
