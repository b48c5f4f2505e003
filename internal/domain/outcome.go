package domain

import "time"

type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusRunning   FileStatus = "running"
	FileStatusPass      FileStatus = "pass"
	FileStatusFail      FileStatus = "fail"
	FileStatusCancelled FileStatus = "cancelled"
	FileStatusTimeout   FileStatus = "timeout"
	FileStatusMissing   FileStatus = "missing"
)

// IsTerminal reports whether a file in this status has finished processing.
// Terminal statuses never transition again.
func (s FileStatus) IsTerminal() bool {
	switch s {
	case FileStatusPass, FileStatusFail, FileStatusCancelled, FileStatusTimeout, FileStatusMissing:
		return true
	}
	return false
}

func (s FileStatus) IsValid() bool {
	switch s {
	case FileStatusPending, FileStatusRunning, FileStatusPass, FileStatusFail,
		FileStatusCancelled, FileStatusTimeout, FileStatusMissing:
		return true
	}
	return false
}

// FileOutcome is the per-file result of one batch run.
type FileOutcome struct {
	FileName string     `json:"file_name"`
	Status   FileStatus `json:"status"`
	Details  string     `json:"details,omitempty"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	// ProcessingTime is wall-clock time from dispatch to terminal status,
	// including retries and backoff waits.
	ProcessingTime time.Duration `json:"processing_time_ns"`
}
