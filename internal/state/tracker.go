// Package state records per-file lifecycle transitions during a batch run
// and periodically checkpoints a durable snapshot for crash diagnosis.
//
// The tracker is authoritative for file status; the metrics aggregator only
// reads outcomes. Checkpoints are diagnostic artifacts: they are never read
// back by the orchestrator, which resumes from the finalized run log via
// the reprocess selector instead.
package state

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// ErrTerminalTransition is returned when an update would regress a file out
// of a terminal status. Transitions are monotonic: running may become any
// terminal status, terminal statuses never change again.
var ErrTerminalTransition = errors.New("file state transition denied: already terminal")

// FileState is the tracked state of one file.
type FileState struct {
	Status    domain.FileStatus `json:"status"`
	Details   string            `json:"details,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Tracker owns the per-file state map for one batch run. It is touched
// only by the main processing flow; checkpoint writes copy the state before
// leaving that flow.
type Tracker struct {
	checkpoints *Checkpointer
	clock       func() time.Time

	total      int
	processing bool
	startedAt  time.Time
	files      map[string]FileState
}

// NewTracker creates a Tracker writing checkpoints through checkpoints,
// which may be nil to disable checkpointing entirely.
func NewTracker(checkpoints *Checkpointer) *Tracker {
	return &Tracker{
		checkpoints: checkpoints,
		clock:       time.Now,
		files:       make(map[string]FileState),
	}
}

// InitializeBatch resets the tracker for a run over the named files. Every
// file starts pending, so checkpoints carry the full per-file state map
// including files that have not begun processing yet.
func (t *Tracker) InitializeBatch(names []string) {
	t.total = len(names)
	t.processing = true
	t.startedAt = t.clock()
	t.files = make(map[string]FileState, len(names))
	now := t.clock()
	for _, name := range names {
		t.files[name] = FileState{Status: domain.FileStatusPending, UpdatedAt: now}
	}
}

// UpdateFileState records a transition for name. Terminal states are
// sticky; an attempt to leave one is rejected.
func (t *Tracker) UpdateFileState(name string, status domain.FileStatus, details string) error {
	if existing, ok := t.files[name]; ok && existing.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminalTransition, name, existing.Status)
	}
	t.files[name] = FileState{
		Status:    status,
		Details:   details,
		UpdatedAt: t.clock(),
	}
	return nil
}

// CompleteBatch marks the run as no longer processing.
func (t *Tracker) CompleteBatch() {
	t.processing = false
}

// CompletedCount counts files in a terminal status.
func (t *Tracker) CompletedCount() int {
	n := 0
	for _, fs := range t.files {
		if fs.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// StateOf returns the tracked state for name.
func (t *Tracker) StateOf(name string) (FileState, bool) {
	fs, ok := t.files[name]
	return fs, ok
}

// Snapshot builds a consistent point-in-time copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	files := make(map[string]FileState, len(t.files))
	for name, fs := range t.files {
		files[name] = fs
	}
	return Snapshot{
		Timestamp:      t.clock(),
		TotalFiles:     t.total,
		CompletedFiles: t.CompletedCount(),
		Processing:     t.processing,
		Files:          files,
	}
}

// Checkpoint writes a durable snapshot synchronously. Failures are returned
// for logging; checkpointing is diagnostic and never fatal.
func (t *Tracker) Checkpoint() error {
	if t.checkpoints == nil {
		return nil
	}
	return t.checkpoints.Write(t.Snapshot())
}

// CheckpointAsync copies the state on the calling flow and performs the
// durable write in the background, logging failures. done, when non-nil,
// receives the write result; it runs on the background goroutine.
func (t *Tracker) CheckpointAsync(done func(err error)) {
	if t.checkpoints == nil {
		if done != nil {
			done(nil)
		}
		return
	}
	snap := t.Snapshot()
	go func() {
		err := t.checkpoints.Write(snap)
		if err != nil {
			log.Printf("state: checkpoint write failed (non-fatal): %v", err)
		}
		if done != nil {
			done(err)
		}
	}()
}
