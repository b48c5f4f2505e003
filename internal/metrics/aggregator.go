package metrics

import (
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// FileSummary is the derived per-file view over all recorded attempts.
type FileSummary struct {
	Attempts     int
	LastStatus   domain.FileStatus
	TotalTime    time.Duration
	AvgTime      time.Duration
	FirstAttempt time.Time
	LastAttempt  time.Time
}

// BatchSummary is the derived batch-level view.
type BatchSummary struct {
	TotalFiles   int
	Completed    int
	Failed       int
	AvgDuration  time.Duration
	PeakDuration time.Duration
	// SuccessRate is completed/total in percent; 0 for an empty batch.
	SuccessRate float64
}

type fileStats struct {
	attempts     int
	lastStatus   domain.FileStatus
	totalTime    time.Duration
	firstAttempt time.Time
	lastAttempt  time.Time
}

// Aggregator derives summary statistics from recorded file outcomes. It
// only reads outcomes; the state tracker stays authoritative for status.
// State is owned by the main processing flow and needs no locking.
type Aggregator struct {
	files map[string]*fileStats
	order []string
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{files: make(map[string]*fileStats)}
}

// RecordFileMetric folds one outcome into the per-file statistics.
func (a *Aggregator) RecordFileMetric(name string, outcome domain.FileOutcome) {
	fs, ok := a.files[name]
	if !ok {
		fs = &fileStats{firstAttempt: outcome.StartedAt}
		a.files[name] = fs
		a.order = append(a.order, name)
	}
	fs.attempts++
	fs.lastStatus = outcome.Status
	fs.totalTime += outcome.ProcessingTime
	fs.lastAttempt = outcome.StartedAt
}

// SummaryForFile returns the derived summary for name.
func (a *Aggregator) SummaryForFile(name string) (FileSummary, bool) {
	fs, ok := a.files[name]
	if !ok {
		return FileSummary{}, false
	}
	avg := time.Duration(0)
	if fs.attempts > 0 {
		avg = fs.totalTime / time.Duration(fs.attempts)
	}
	return FileSummary{
		Attempts:     fs.attempts,
		LastStatus:   fs.lastStatus,
		TotalTime:    fs.totalTime,
		AvgTime:      avg,
		FirstAttempt: fs.firstAttempt,
		LastAttempt:  fs.lastAttempt,
	}, true
}

// BatchSummary derives batch-level aggregates over every recorded file.
// An empty batch yields a zero summary rather than dividing by zero.
func (a *Aggregator) BatchSummary() BatchSummary {
	sum := BatchSummary{TotalFiles: len(a.files)}
	if sum.TotalFiles == 0 {
		return sum
	}

	var total time.Duration
	for _, name := range a.order {
		fs := a.files[name]
		total += fs.totalTime
		if fs.totalTime > sum.PeakDuration {
			sum.PeakDuration = fs.totalTime
		}
		switch fs.lastStatus {
		case domain.FileStatusPass:
			sum.Completed++
		case domain.FileStatusFail, domain.FileStatusTimeout, domain.FileStatusMissing:
			sum.Failed++
		}
	}
	sum.AvgDuration = total / time.Duration(sum.TotalFiles)
	sum.SuccessRate = float64(sum.Completed) / float64(sum.TotalFiles) * 100
	return sum
}

// AvgFileDuration is the mean total processing time across recorded files,
// used for estimated-time-remaining reporting. Zero with no history.
func (a *Aggregator) AvgFileDuration() time.Duration {
	if len(a.files) == 0 {
		return 0
	}
	var total time.Duration
	for _, fs := range a.files {
		total += fs.totalTime
	}
	return total / time.Duration(len(a.files))
}
