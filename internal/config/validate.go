package config

import (
	"fmt"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if cfg.ProjectName == "" {
		errs = append(errs, ValidationError{Field: "project_name", Message: "required"})
	}
	if cfg.ModelDirectory == "" {
		errs = append(errs, ValidationError{Field: "model_directory", Message: "required"})
	}
	if cfg.OutputDirectory == "" {
		errs = append(errs, ValidationError{Field: "output_directory", Message: "required"})
	}
	if cfg.ScriptCommand == "" {
		errs = append(errs, ValidationError{Field: "script_command", Message: "required"})
	}

	mode := domain.ReprocessMode(cfg.Reprocess.Mode)
	if !mode.IsValid() {
		errs = append(errs, ValidationError{
			Field:   "reprocess.mode",
			Message: fmt.Sprintf("must be one of ALL, RESUME, PASS, FAIL, got %q", cfg.Reprocess.Mode),
		})
	} else if mode != domain.ReprocessAll && cfg.Reprocess.ReferenceLog == "" {
		errs = append(errs, ValidationError{
			Field:   "reprocess.reference_log",
			Message: fmt.Sprintf("required for mode %s", mode),
		})
	}

	switch cfg.Retry.Policy {
	case "fixed", "linear", "exponential":
	default:
		errs = append(errs, ValidationError{
			Field:   "retry.policy",
			Message: fmt.Sprintf("must be fixed, linear or exponential, got %q", cfg.Retry.Policy),
		})
	}
	if cfg.Retry.MaxAttempts < 1 {
		errs = append(errs, ValidationError{Field: "retry.max_attempts", Message: "must be at least 1"})
	}

	errs = appendDurationErrors(errs, "timeout.default", cfg.Timeout.DefaultStr)
	errs = appendDurationErrors(errs, "circuit_breaker.reset_timeout", cfg.CircuitBreaker.ResetTimeoutStr)
	errs = appendDurationErrors(errs, "retry.max_delay", cfg.Retry.MaxDelayStr)
	errs = appendDurationErrors(errs, "poll_interval", cfg.PollIntervalStr)
	errs = appendDurationErrors(errs, "monitor_interval", cfg.MonitorIntervalStr)

	if cfg.Timeout.MinSamples < 1 {
		errs = append(errs, ValidationError{Field: "timeout.min_samples", Message: "must be at least 1"})
	}
	if cfg.Timeout.BufferFactor < 1 {
		errs = append(errs, ValidationError{Field: "timeout.buffer_factor", Message: "must be at least 1"})
	}
	if cfg.CircuitBreaker.CPUThreshold <= 0 || cfg.CircuitBreaker.CPUThreshold > 100 {
		errs = append(errs, ValidationError{Field: "circuit_breaker.cpu_threshold", Message: "must be in (0, 100]"})
	}
	if cfg.CircuitBreaker.MemoryThreshold <= 0 || cfg.CircuitBreaker.MemoryThreshold > 100 {
		errs = append(errs, ValidationError{Field: "circuit_breaker.memory_threshold", Message: "must be in (0, 100]"})
	}
	if cfg.CircuitBreaker.FailureThreshold < 1 {
		errs = append(errs, ValidationError{Field: "circuit_breaker.failure_threshold", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func appendDurationErrors(errs ValidationErrors, field, value string) ValidationErrors {
	if value == "" {
		return append(errs, ValidationError{Field: field, Message: "required"})
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid duration: %v", err)})
	}
	if d <= 0 {
		return append(errs, ValidationError{Field: field, Message: "must be positive"})
	}
	return errs
}
