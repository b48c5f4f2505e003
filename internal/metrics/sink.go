package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Batch lifecycle
	BatchStarted(totalFiles int)
	BatchCompleted(status string, duration time.Duration)

	// Per-file processing
	FileProcessed(status string, duration time.Duration)
	RetryAttempt(retryable bool)

	// Resilience machinery
	CircuitBreakerTrip()
	CheckpointWritten(ok bool)
}
