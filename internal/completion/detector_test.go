package completion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
	"github.com/marco-teran27/BatchProcessor/internal/testutil"
)

// stubTimeouts returns a fixed timeout and records fed-back durations.
type stubTimeouts struct {
	timeout  time.Duration
	recorded []time.Duration
}

func (s *stubTimeouts) Calculate(key string) time.Duration { return s.timeout }
func (s *stubTimeouts) Record(key string, d time.Duration) { s.recorded = append(s.recorded, d) }

func newTestDetector(t *testing.T, timeout time.Duration) (*Detector, *stubTimeouts, string) {
	t.Helper()
	dir := t.TempDir()
	ts := &stubTimeouts{timeout: timeout}
	d := New(Config{Dir: dir, Project: "towers", PollInterval: 5 * time.Millisecond}, ts)
	return d, ts, dir
}

func TestAwait_PassSignalConsumed(t *testing.T) {
	d, ts, dir := newTestDetector(t, 5*time.Minute)

	// Written from a goroutine the way a separately-launched script would.
	path := filepath.Join(dir, domain.SignalFileName("model.3dm", "towers", domain.SignalPass))
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(path, []byte(`{"success": true, "details": "exported 12 views"}`), 0o644)
	}()

	start := time.Now()
	res := d.Await(testutil.TestContext(t), "model.3dm")

	if !res.Success {
		t.Fatalf("Result = %+v, want success", res)
	}
	if res.Details != "exported 12 views" {
		t.Errorf("Details = %q", res.Details)
	}
	if time.Since(start) >= 5*time.Minute {
		t.Fatal("Await should return well before the timeout")
	}

	// The signal file must be consumed.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("signal file still exists after Await: %v", err)
	}

	// Successful waits feed the adaptive baseline.
	if len(ts.recorded) != 1 {
		t.Fatalf("recorded %d durations, want 1", len(ts.recorded))
	}
}

func TestAwait_FailSignal(t *testing.T) {
	d, ts, dir := newTestDetector(t, 5*time.Minute)

	testutil.WriteSignal(t, dir, "model.3dm", "towers", domain.SignalFail,
		domain.CompletionSignal{Success: false, Details: "script error on layer 3"})

	res := d.Await(testutil.TestContext(t), "model.3dm")

	if res.Success || res.TimedOut {
		t.Fatalf("Result = %+v, want plain failure", res)
	}
	if res.Details != "script error on layer 3" {
		t.Errorf("Details = %q", res.Details)
	}
	// Failures must not pollute the adaptive baseline.
	if len(ts.recorded) != 0 {
		t.Fatalf("recorded %d durations for a failure, want 0", len(ts.recorded))
	}
}

func TestAwait_Timeout(t *testing.T) {
	d, _, _ := newTestDetector(t, 30*time.Millisecond)

	res := d.Await(testutil.TestContext(t), "model.3dm")

	if !res.TimedOut || res.Success {
		t.Fatalf("Result = %+v, want timeout", res)
	}
	if res.Details == "" {
		t.Error("timeout result should carry a details message")
	}
}

func TestAwait_FailWinsOverPass(t *testing.T) {
	d, _, dir := newTestDetector(t, 5*time.Minute)

	testutil.WriteSignal(t, dir, "model.3dm", "towers", domain.SignalPass,
		domain.CompletionSignal{Success: true})
	testutil.WriteSignal(t, dir, "model.3dm", "towers", domain.SignalFail,
		domain.CompletionSignal{Success: false, Details: "late failure"})

	res := d.Await(testutil.TestContext(t), "model.3dm")

	if res.Success {
		t.Fatalf("Result = %+v, FAIL signal must take precedence", res)
	}

	// Both signals are consumed so neither leaks into a later run.
	if d.HasSignal("model.3dm") {
		t.Fatal("signals should all be consumed")
	}
}

func TestAwait_DistinctFilesDoNotInterfere(t *testing.T) {
	d, _, dir := newTestDetector(t, 5*time.Minute)

	testutil.WriteSignal(t, dir, "other.3dm", "towers", domain.SignalPass,
		domain.CompletionSignal{Success: true})

	res := d.Await(testutil.TestContext(t), "model.3dm")
	if !res.TimedOut && !res.Cancelled {
		t.Fatalf("Result = %+v, other file's signal must not be observed", res)
	}

	if !d.HasSignal("other.3dm") {
		t.Fatal("other file's signal must not be consumed")
	}
}

func TestAwait_Cancelled(t *testing.T) {
	d, _, _ := newTestDetector(t, 5*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := d.Await(ctx, "model.3dm")
	if !res.Cancelled {
		t.Fatalf("Result = %+v, want cancelled", res)
	}
}

func TestAwait_MalformedSignalConsumedAsFailure(t *testing.T) {
	d, _, dir := newTestDetector(t, 5*time.Minute)

	path := filepath.Join(dir, domain.SignalFileName("model.3dm", "towers", domain.SignalPass))
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := d.Await(testutil.TestContext(t), "model.3dm")
	if res.Success {
		t.Fatalf("Result = %+v, malformed signal must not pass", res)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("malformed signal must still be consumed")
	}
}

func TestHasSignal_NonDestructive(t *testing.T) {
	d, _, dir := newTestDetector(t, 5*time.Minute)

	if d.HasSignal("model.3dm") {
		t.Fatal("no signal expected yet")
	}

	testutil.WriteSignal(t, dir, "model.3dm", "towers", domain.SignalPass,
		domain.CompletionSignal{Success: true})

	if !d.HasSignal("model.3dm") {
		t.Fatal("signal should be visible")
	}
	if !d.HasSignal("model.3dm") {
		t.Fatal("HasSignal must not consume the signal")
	}
}
