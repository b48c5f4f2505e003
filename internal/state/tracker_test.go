package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

func TestInitializeBatch_SeedsPendingStates(t *testing.T) {
	tr := NewTracker(nil)
	tr.InitializeBatch([]string{"a.3dm", "b.3dm", "c.3dm"})

	for _, name := range []string{"a.3dm", "b.3dm", "c.3dm"} {
		fs, ok := tr.StateOf(name)
		if !ok || fs.Status != domain.FileStatusPending {
			t.Fatalf("StateOf(%s) = %+v, %v, want pending", name, fs, ok)
		}
	}

	snap := tr.Snapshot()
	if len(snap.Files) != 3 || snap.CompletedFiles != 0 {
		t.Fatalf("snapshot = %+v, want 3 pending files", snap)
	}
}

func TestUpdateFileState_MonotonicTransitions(t *testing.T) {
	tr := NewTracker(nil)
	tr.InitializeBatch([]string{"a.3dm", "b.3dm"})

	if err := tr.UpdateFileState("a.3dm", domain.FileStatusRunning, ""); err != nil {
		t.Fatalf("pending->running: %v", err)
	}
	if err := tr.UpdateFileState("a.3dm", domain.FileStatusPass, "done"); err != nil {
		t.Fatalf("running->pass: %v", err)
	}

	// Terminal states are sticky.
	err := tr.UpdateFileState("a.3dm", domain.FileStatusRunning, "")
	if !errors.Is(err, ErrTerminalTransition) {
		t.Fatalf("pass->running = %v, want ErrTerminalTransition", err)
	}
	err = tr.UpdateFileState("a.3dm", domain.FileStatusFail, "")
	if !errors.Is(err, ErrTerminalTransition) {
		t.Fatalf("pass->fail = %v, want ErrTerminalTransition", err)
	}

	fs, ok := tr.StateOf("a.3dm")
	if !ok || fs.Status != domain.FileStatusPass || fs.Details != "done" {
		t.Fatalf("StateOf = %+v, %v", fs, ok)
	}
}

func TestCompletedCount(t *testing.T) {
	tr := NewTracker(nil)
	tr.InitializeBatch([]string{"a.3dm", "b.3dm", "c.3dm"})

	tr.UpdateFileState("a.3dm", domain.FileStatusPass, "")
	tr.UpdateFileState("b.3dm", domain.FileStatusRunning, "")
	tr.UpdateFileState("c.3dm", domain.FileStatusTimeout, "")

	if got := tr.CompletedCount(); got != 2 {
		t.Fatalf("CompletedCount = %d, want 2", got)
	}
}

func TestCheckpoint_WritesFullSnapshot(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(NewCheckpointer(dir))
	tr.InitializeBatch([]string{"a.3dm", "b.3dm"})
	tr.UpdateFileState("a.3dm", domain.FileStatusPass, "ok")
	tr.UpdateFileState("b.3dm", domain.FileStatusRunning, "")

	if err := tr.Checkpoint(); err != nil {
		t.Fatalf("Checkpoint error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("checkpoint dir has %d entries, want 1", len(entries))
	}

	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("checkpoint is not valid JSON: %v", err)
	}
	if snap.TotalFiles != 2 || snap.CompletedFiles != 1 || !snap.Processing {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Files["a.3dm"].Status != domain.FileStatusPass {
		t.Fatalf("snapshot files = %+v", snap.Files)
	}
}

func TestCheckpoint_FailureIsReturnedNotFatal(t *testing.T) {
	// A file where the directory should be forces the write to fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "occupied")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker(NewCheckpointer(filepath.Join(blocked, "nested")))
	tr.InitializeBatch([]string{"a.3dm"})

	if err := tr.Checkpoint(); err == nil {
		t.Fatal("expected checkpoint write error")
	}
}

func TestCheckpointAsync_WritesInBackground(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(NewCheckpointer(dir))
	tr.InitializeBatch([]string{"a.3dm"})
	tr.UpdateFileState("a.3dm", domain.FileStatusPass, "ok")

	done := make(chan error, 1)
	tr.CheckpointAsync(func(err error) { done <- err })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("async checkpoint: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async checkpoint never completed")
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("checkpoint dir entries = %v, err = %v", entries, err)
	}
}

func TestCheckpointAsync_FailureIsReported(t *testing.T) {
	base := t.TempDir()
	blocked := filepath.Join(base, "occupied")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker(NewCheckpointer(filepath.Join(blocked, "nested")))
	tr.InitializeBatch([]string{"a.3dm"})

	done := make(chan error, 1)
	tr.CheckpointAsync(func(err error) { done <- err })

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected async checkpoint write error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("async checkpoint never completed")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	tr := NewTracker(nil)
	tr.InitializeBatch([]string{"a.3dm"})
	tr.UpdateFileState("a.3dm", domain.FileStatusRunning, "")

	snap := tr.Snapshot()
	tr.UpdateFileState("a.3dm", domain.FileStatusPass, "")

	if snap.Files["a.3dm"].Status != domain.FileStatusRunning {
		t.Fatal("snapshot must not observe later mutations")
	}
}
