// Package reprocess filters a candidate file set against a prior run's
// recorded outcomes, so partial runs can be resumed and pass/fail subsets
// re-run without touching everything else.
package reprocess

import (
	"errors"
	"fmt"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

var ErrInvalidMode = errors.New("invalid reprocess mode")

// ReferenceLoader loads a persisted prior run. runlog.Load is the
// production implementation.
type ReferenceLoader func(path string) (*domain.BatchRun, error)

// Select filters candidates by mode against ref.
//
// ALL returns the candidates unchanged and needs no reference run. RESUME
// returns candidates with no pass/fail outcome in the reference run. PASS
// and FAIL intersect candidates with the names that terminated pass or
// fail respectively.
func Select(mode domain.ReprocessMode, ref *domain.BatchRun, candidates []string) ([]string, error) {
	if mode == domain.ReprocessAll {
		out := make([]string, len(candidates))
		copy(out, candidates)
		return out, nil
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if ref == nil {
		return nil, fmt.Errorf("reprocess mode %s requires a reference run", mode)
	}

	passed := make(map[string]bool)
	failed := make(map[string]bool)
	for _, f := range ref.Files {
		switch f.Status {
		case domain.FileStatusPass:
			passed[f.FileName] = true
		case domain.FileStatusFail:
			failed[f.FileName] = true
		}
	}

	var out []string
	for _, name := range candidates {
		switch mode {
		case domain.ReprocessResume:
			if !passed[name] && !failed[name] {
				out = append(out, name)
			}
		case domain.ReprocessPass:
			if passed[name] {
				out = append(out, name)
			}
		case domain.ReprocessFail:
			if failed[name] {
				out = append(out, name)
			}
		}
	}
	return out, nil
}

// SelectFromLog loads the reference log at path and filters candidates.
// It fails closed: an unreadable or malformed log yields an empty set and
// an error, never the unfiltered candidate list.
func SelectFromLog(mode domain.ReprocessMode, path string, candidates []string, load ReferenceLoader) ([]string, error) {
	if mode == domain.ReprocessAll {
		return Select(mode, nil, candidates)
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	ref, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("load reference run: %w", err)
	}
	return Select(mode, ref, candidates)
}
