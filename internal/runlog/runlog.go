// Package runlog persists finalized batch runs as JSON reference logs and
// loads them back for reprocess selection.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// Writer persists finalized runs into a directory, one JSON document per run.
type Writer struct {
	dir   string
	clock func() time.Time
}

// NewWriter creates a Writer targeting dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, clock: time.Now}
}

// Write persists run and returns the log path. The write is atomic
// (temp file + rename) so a reader never observes a partial log.
func (w *Writer) Write(run *domain.BatchRun) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory: %w", err)
	}

	body, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run log: %w", err)
	}

	name := fmt.Sprintf("batchrun_%s_%s.json", run.ProjectName, w.clock().UTC().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, name+".tmp")
	if err != nil {
		return "", fmt.Errorf("create temp log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write run log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close run log: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename run log: %w", err)
	}
	return path, nil
}

// Load reads a reference run log. Any decode problem is a hard error: the
// reprocess selector fails closed on malformed logs rather than guessing.
func Load(path string) (*domain.BatchRun, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference log: %w", err)
	}

	var run domain.BatchRun
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("parse reference log %s: %w", filepath.Base(path), err)
	}

	for _, f := range run.Files {
		if f.FileName == "" {
			return nil, fmt.Errorf("reference log %s: outcome with empty file name", filepath.Base(path))
		}
		if !f.Status.IsValid() {
			return nil, fmt.Errorf("reference log %s: unknown status %q for %s", filepath.Base(path), f.Status, f.FileName)
		}
	}
	return &run, nil
}
