// Package completion polls for the out-of-band signal files an externally
// launched script writes when it finishes. There is no synchronous return
// channel from the host application: presence of a PASS or FAIL signal file
// is the only evidence that the script completed.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/domain"
)

// DefaultPollInterval is how often the detector checks for a signal file.
const DefaultPollInterval = 100 * time.Millisecond

// probeOrder fixes the tie-break when both signals exist for one file:
// FAIL is probed first, so a file is never reported passed while any
// evidence of failure exists.
var probeOrder = [2]domain.SignalStatus{domain.SignalFail, domain.SignalPass}

// TimeoutSource supplies the adaptive deadline for each wait and receives
// observed durations back. The timeout estimator is the production
// implementation.
type TimeoutSource interface {
	Calculate(key string) time.Duration
	Record(key string, d time.Duration)
}

// Config holds detector settings.
type Config struct {
	// Dir is the completion subdirectory of the run's output directory.
	Dir string
	// Project namespaces signal file names so concurrent runs for distinct
	// projects never consume each other's signals.
	Project string
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
}

// Result is the outcome of one completion wait.
type Result struct {
	Success   bool
	Details   string
	TimedOut  bool
	Cancelled bool
	// Elapsed is the wall-clock wait from dispatch to signal or timeout.
	Elapsed time.Duration
}

// Detector awaits completion signals bounded by adaptive timeouts.
type Detector struct {
	config   Config
	timeouts TimeoutSource
	clock    func() time.Time
}

// New creates a Detector.
func New(config Config, timeouts TimeoutSource) *Detector {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Detector{
		config:   config,
		timeouts: timeouts,
		clock:    time.Now,
	}
}

// Await polls for a completion signal for fileName, bounded by the adaptive
// timeout for that file. A found signal is consumed (deleted) so a later
// run can never re-read it. The observed duration is fed back to the
// timeout source only on success; failures must not tighten or inflate the
// adaptive baseline.
func (d *Detector) Await(ctx context.Context, fileName string) Result {
	timeout := d.timeouts.Calculate(fileName)
	start := d.clock()
	deadline := start.Add(timeout)

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		if sig, found := d.consume(fileName); found {
			elapsed := d.clock().Sub(start)
			if sig.Success {
				d.timeouts.Record(fileName, elapsed)
			}
			return Result{Success: sig.Success, Details: sig.Details, Elapsed: elapsed}
		}

		if !d.clock().Before(deadline) {
			return Result{
				TimedOut: true,
				Details:  fmt.Sprintf("timed out after %s waiting for completion signal", timeout.Round(time.Second)),
				Elapsed:  d.clock().Sub(start),
			}
		}

		select {
		case <-ctx.Done():
			return Result{
				Cancelled: true,
				Details:   "cancelled while waiting for completion signal",
				Elapsed:   d.clock().Sub(start),
			}
		case <-ticker.C:
		}
	}
}

// consume reads and deletes the first signal found for fileName, FAIL
// before PASS. When both exist, both are removed so neither leaks into a
// later run. A file that exists but fails to parse is still consumed and
// reported as a failed signal.
func (d *Detector) consume(fileName string) (domain.CompletionSignal, bool) {
	for _, status := range probeOrder {
		path := filepath.Join(d.config.Dir, domain.SignalFileName(fileName, d.config.Project, status))
		body, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("completion: read %s: %v", path, err)
			}
			continue
		}

		d.Discard(fileName)

		var sig domain.CompletionSignal
		if err := json.Unmarshal(body, &sig); err != nil {
			return domain.CompletionSignal{
				Details: fmt.Sprintf("malformed completion signal %s: %v", filepath.Base(path), err),
			}, true
		}
		return sig, true
	}
	return domain.CompletionSignal{}, false
}

// HasSignal is a non-destructive existence check for callers that must not
// consume the signal, such as diagnostics.
func (d *Detector) HasSignal(fileName string) bool {
	for _, status := range probeOrder {
		path := filepath.Join(d.config.Dir, domain.SignalFileName(fileName, d.config.Project, status))
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

// Discard removes any signal files for fileName without reading them. Used
// for cleanup of transient artifacts at the end of a run.
func (d *Detector) Discard(fileName string) {
	for _, status := range probeOrder {
		path := filepath.Join(d.config.Dir, domain.SignalFileName(fileName, d.config.Project, status))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("completion: remove %s: %v", path, err)
		}
	}
}
