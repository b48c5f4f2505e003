package domain

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusPass      RunStatus = "pass"
	RunStatusFail      RunStatus = "fail"
	RunStatusCancelled RunStatus = "cancelled"
)

// BatchRun records one top-level execution over a set of model files.
// It is mutated only by the orchestrator while running and is immutable
// once finalized; the persisted form is the reference log consumed by the
// reprocess selector on a later run.
type BatchRun struct {
	ID          uuid.UUID `json:"id"`
	ProjectName string    `json:"project_name"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Status    RunStatus `json:"status"`
	Cancelled bool      `json:"cancelled"`
	Details   string    `json:"details,omitempty"`

	// Files holds outcomes in file-processing order. Files that never began
	// processing (for example after cancellation) are absent.
	Files []FileOutcome `json:"files"`
}

func NewBatchRun(projectName string, now time.Time) *BatchRun {
	return &BatchRun{
		ID:          uuid.New(),
		ProjectName: projectName,
		StartedAt:   now,
		Status:      RunStatusRunning,
	}
}

// SuccessfulFiles counts files that terminated pass.
func (r *BatchRun) SuccessfulFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Status == FileStatusPass {
			n++
		}
	}
	return n
}

// FailedFiles counts files that terminated fail, timeout or missing.
func (r *BatchRun) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		switch f.Status {
		case FileStatusFail, FileStatusTimeout, FileStatusMissing:
			n++
		}
	}
	return n
}

// Finalize sets the terminal run status: cancelled wins over everything,
// then any file failure makes the run a failure, otherwise it passed.
func (r *BatchRun) Finalize(now time.Time) {
	r.EndedAt = now
	switch {
	case r.Cancelled:
		r.Status = RunStatusCancelled
	case r.FailedFiles() > 0:
		r.Status = RunStatusFail
	default:
		r.Status = RunStatusPass
	}
}

// OutcomeFor returns the outcome recorded for fileName, if any.
func (r *BatchRun) OutcomeFor(fileName string) (FileOutcome, bool) {
	for _, f := range r.Files {
		if f.FileName == fileName {
			return f, true
		}
	}
	return FileOutcome{}, false
}
