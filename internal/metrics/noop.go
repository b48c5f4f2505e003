package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) BatchStarted(totalFiles int)                        {}
func (n *NoopSink) BatchCompleted(status string, d time.Duration)      {}
func (n *NoopSink) FileProcessed(status string, d time.Duration)       {}
func (n *NoopSink) RetryAttempt(retryable bool)                        {}
func (n *NoopSink) CircuitBreakerTrip()                                {}
func (n *NoopSink) CheckpointWritten(ok bool)                          {}
