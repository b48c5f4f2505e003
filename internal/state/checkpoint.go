package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the checkpoint document: aggregate counts plus the full
// per-file state map.
type Snapshot struct {
	Timestamp      time.Time            `json:"timestamp"`
	TotalFiles     int                  `json:"total_files"`
	CompletedFiles int                  `json:"completed_files"`
	Processing     bool                 `json:"processing"`
	Files          map[string]FileState `json:"files"`
}

// Checkpointer writes snapshots to timestamped files in a directory.
type Checkpointer struct {
	dir   string
	clock func() time.Time
}

// NewCheckpointer creates a Checkpointer targeting dir.
func NewCheckpointer(dir string) *Checkpointer {
	return &Checkpointer{dir: dir, clock: time.Now}
}

// Write persists one snapshot atomically (temp file + rename), so a reader
// never observes a partial checkpoint.
func (c *Checkpointer) Write(snap Snapshot) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	name := fmt.Sprintf("checkpoint_%s.json", c.clock().UTC().Format("20060102_150405.000"))
	path := filepath.Join(c.dir, name)

	tmp, err := os.CreateTemp(c.dir, name+".tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
