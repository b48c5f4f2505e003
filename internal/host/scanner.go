// Package host provides the default implementations of the collaborator
// interfaces the orchestrator consumes: directory scanning, script
// dispatch, document lifecycle and resource snapshots.
package host

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// DirScanner lists candidate model files in a directory.
type DirScanner struct{}

// NewDirScanner creates a DirScanner.
func NewDirScanner() *DirScanner {
	return &DirScanner{}
}

// Scan returns the base names of regular files in dir matching filter,
// sorted for deterministic processing order.
func (s *DirScanner) Scan(dir string, filter domain.FileFilter) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !matchExtension(name, filter.Extensions) {
			continue
		}
		ok, err := matchPatterns(name, filter.NamePatterns)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func matchExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func matchPatterns(name string, patterns []string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, p := range patterns {
		ok, err := filepath.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("bad name pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
