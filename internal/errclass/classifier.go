// Package errclass categorizes per-file failures and decides recovery.
//
// The recovery table here is the single source of truth for retry behavior:
// the retry coordinator and the orchestrator both consult it instead of
// hard-coding delays or eligibility.
package errclass

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Category is the bounded failure taxonomy.
type Category string

const (
	CategoryIO         Category = "io"
	CategoryResource   Category = "resource"
	CategoryTimeout    Category = "timeout"
	CategoryPermission Category = "permission"
	CategoryGeneral    Category = "general"
)

// Severity grades a failure for recovery decisions.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Recovery is the proposed handling for a classified failure.
type Recovery struct {
	ShouldRetry bool
	Delay       time.Duration
	// Steps is a human-readable remediation hint surfaced to the operator.
	Steps string
}

// Classify maps an error to its category. The mapping inspects wrapped
// error kinds first and falls back to bounded substring checks, so it is
// total: any error lands in exactly one category.
func Classify(err error) Category {
	if err == nil {
		return CategoryGeneral
	}

	if errors.Is(err, os.ErrPermission) {
		return CategoryPermission
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "access is denied"),
		strings.Contains(msg, "permission denied"):
		return CategoryPermission
	case strings.Contains(msg, "timed out"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(msg, "out of memory"),
		strings.Contains(msg, "cannot allocate"),
		strings.Contains(msg, "too many open files"),
		strings.Contains(msg, "resource temporarily unavailable"),
		strings.Contains(msg, "no space left"):
		return CategoryResource
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrClosed),
		strings.Contains(msg, "no such file"),
		strings.Contains(msg, "input/output error"),
		strings.Contains(msg, "file is locked"),
		strings.Contains(msg, "sharing violation"):
		return CategoryIO
	}
	return CategoryGeneral
}

// DetermineRecovery returns the fixed recovery policy for a category.
//
// IO retries after 5s, resource exhaustion after 60s, timeouts after 30s.
// Permission failures are never retried. General failures retry after 10s
// unless the severity is critical.
func DetermineRecovery(cat Category, sev Severity) Recovery {
	switch cat {
	case CategoryIO:
		return Recovery{
			ShouldRetry: true,
			Delay:       5 * time.Second,
			Steps:       "check that the file exists and is not locked by another process",
		}
	case CategoryResource:
		return Recovery{
			ShouldRetry: true,
			Delay:       60 * time.Second,
			Steps:       "close other applications to free memory, or reduce the batch size",
		}
	case CategoryTimeout:
		return Recovery{
			ShouldRetry: true,
			Delay:       30 * time.Second,
			Steps:       "verify the script completes on this file when run manually; heavy files may need a larger default timeout",
		}
	case CategoryPermission:
		return Recovery{
			ShouldRetry: false,
			Steps:       "grant read/write access to the model and output directories",
		}
	default:
		if sev == SeverityCritical {
			return Recovery{
				ShouldRetry: false,
				Steps:       "inspect the log for the underlying error before re-running",
			}
		}
		return Recovery{
			ShouldRetry: true,
			Delay:       10 * time.Second,
			Steps:       "inspect the log for the underlying error",
		}
	}
}
