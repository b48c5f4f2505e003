package domain

import (
	"testing"
	"time"
)

func TestFileStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   FileStatus
		terminal bool
	}{
		{FileStatusPending, false},
		{FileStatusRunning, false},
		{FileStatusPass, true},
		{FileStatusFail, true},
		{FileStatusCancelled, true},
		{FileStatusTimeout, true},
		{FileStatusMissing, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal(%q) = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestBatchRun_Finalize(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		cancelled bool
		files     []FileOutcome
		want      RunStatus
	}{
		{"no files passes", false, nil, RunStatusPass},
		{"all pass", false, []FileOutcome{{Status: FileStatusPass}}, RunStatusPass},
		{"one fail", false, []FileOutcome{{Status: FileStatusPass}, {Status: FileStatusFail}}, RunStatusFail},
		{"timeout counts as failure", false, []FileOutcome{{Status: FileStatusTimeout}}, RunStatusFail},
		{"missing counts as failure", false, []FileOutcome{{Status: FileStatusMissing}}, RunStatusFail},
		{"cancelled wins over failure", true, []FileOutcome{{Status: FileStatusFail}}, RunStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := NewBatchRun("proj", now)
			run.Files = tt.files
			run.Cancelled = tt.cancelled
			run.Finalize(now.Add(time.Minute))
			if run.Status != tt.want {
				t.Errorf("Status = %q, want %q", run.Status, tt.want)
			}
			if !run.EndedAt.Equal(now.Add(time.Minute)) {
				t.Errorf("EndedAt = %v, want %v", run.EndedAt, now.Add(time.Minute))
			}
		})
	}
}

func TestBatchRun_Counts(t *testing.T) {
	run := NewBatchRun("proj", time.Now())
	run.Files = []FileOutcome{
		{FileName: "a.3dm", Status: FileStatusPass},
		{FileName: "b.3dm", Status: FileStatusTimeout},
		{FileName: "c.3dm", Status: FileStatusFail},
		{FileName: "d.3dm", Status: FileStatusCancelled},
	}

	if got := run.SuccessfulFiles(); got != 1 {
		t.Errorf("SuccessfulFiles = %d, want 1", got)
	}
	if got := run.FailedFiles(); got != 2 {
		t.Errorf("FailedFiles = %d, want 2", got)
	}
}

func TestSignalFileName(t *testing.T) {
	got := SignalFileName("model.3dm", "towers", SignalPass)
	want := "model.3dm_towers_PASS.json"
	if got != want {
		t.Errorf("SignalFileName = %q, want %q", got, want)
	}
}
