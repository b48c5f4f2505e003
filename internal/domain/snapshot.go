package domain

import "time"

// ResourceSnapshot is a point-in-time sample of host resource usage,
// captured by the background monitor and consumed by the circuit breaker.
type ResourceSnapshot struct {
	CPUPercent    float64
	MemoryPercent float64
	ThreadCount   int
	Timestamp     time.Time
}
