// Package orchestrator drives one batch run end to end: scan the model
// directory, filter candidates against a prior run, process each file
// through dispatch, completion wait and retries, then aggregate and
// persist the finalized run.
//
// Processing is deliberately single-threaded; the only concurrent flows
// are the resource monitor and checkpoint writes, and the circuit breaker
// is the only component they share with the main loop.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"time"

	"github.com/marco-teran27/BatchProcessor/internal/circuitbreaker"
	"github.com/marco-teran27/BatchProcessor/internal/completion"
	"github.com/marco-teran27/BatchProcessor/internal/domain"
	"github.com/marco-teran27/BatchProcessor/internal/errclass"
	"github.com/marco-teran27/BatchProcessor/internal/metrics"
	"github.com/marco-teran27/BatchProcessor/internal/reprocess"
	"github.com/marco-teran27/BatchProcessor/internal/retry"
	"github.com/marco-teran27/BatchProcessor/internal/state"
)

// State labels one phase of the run state machine. Transitions only move
// forward; the terminal states are Completed, Cancelled and Failed.
type State string

const (
	StateIdle            State = "idle"
	StateSelectingConfig State = "selecting_config"
	StateValidating      State = "validating"
	StateScanning        State = "scanning"
	StateFiltering       State = "filtering"
	StateProcessing      State = "processing"
	StateAggregating     State = "aggregating"
	StateCompleted       State = "completed"
	StateCancelled       State = "cancelled"
	StateFailed          State = "failed"
)

// errScriptFailure marks a FAIL completion signal. The script ran to
// completion and reported the file as failed, so retrying is pointless.
var errScriptFailure = errors.New("script reported failure")

// DocumentClient opens and closes model documents around processing.
type DocumentClient interface {
	Open(ctx context.Context, path string) error
	Close(ctx context.Context, path string) error
}

// ScriptDispatcher launches the processing script for one file.
type ScriptDispatcher interface {
	Dispatch(ctx context.Context, filePath, project string) error
}

// DirectoryScanner lists candidate files in the model directory.
type DirectoryScanner interface {
	Scan(dir string, filter domain.FileFilter) ([]string, error)
}

// SnapshotProvider captures one resource snapshot for the breaker gate.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.ResourceSnapshot, error)
}

// Detector awaits and cleans up completion signals.
type Detector interface {
	Await(ctx context.Context, fileName string) completion.Result
	Discard(fileName string)
}

// RunLogWriter persists a finalized run.
type RunLogWriter interface {
	Write(run *domain.BatchRun) (string, error)
}

// OutcomeSink receives per-file outcomes for external analytics. Errors
// are logged and never affect the run.
type OutcomeSink interface {
	Record(ctx context.Context, project, fileName string, status domain.FileStatus) error
}

// Progress is one progress report to the operator.
type Progress struct {
	Done    int
	Total   int
	Current string
	// ETA estimates remaining wall-clock time from observed durations;
	// zero until at least one file has finished.
	ETA time.Duration
}

// Reporter receives progress reports.
type Reporter interface {
	Report(p Progress)
}

// Config holds per-run orchestrator settings.
type Config struct {
	ProjectName    string
	ModelDirectory string

	Filter        domain.FileFilter
	ReprocessMode domain.ReprocessMode
	ReferenceLog  string

	// Retry tunes the per-file retry coordinator.
	Retry retry.Config

	// BreakerProbeInterval is the wait between breaker probes while work is
	// stalled on an open circuit. Default: 5 seconds.
	BreakerProbeInterval time.Duration
}

// Components are the collaborators a run is wired with. RunLog, Outcomes
// and Reporter may be nil; the rest are required.
type Components struct {
	Documents  DocumentClient
	Dispatcher ScriptDispatcher
	Scanner    DirectoryScanner
	Snapshots  SnapshotProvider
	Detector   Detector
	Breaker    *circuitbreaker.Breaker
	Tracker    *state.Tracker
	Sink       metrics.Sink
	RunLog     RunLogWriter
	Outcomes   OutcomeSink
	Reporter   Reporter
	// LoadReference loads a prior run log for reprocess filtering.
	// Defaults to runlog.Load via the caller; required for modes other
	// than ALL.
	LoadReference reprocess.ReferenceLoader
}

// Orchestrator runs batches.
type Orchestrator struct {
	config Config
	comps  Components

	history    *errclass.History
	aggregator *metrics.Aggregator
	state      State
	clock      func() time.Time
	sleep      func(ctx context.Context, d time.Duration) bool
}

// New creates an Orchestrator.
func New(config Config, comps Components) *Orchestrator {
	if config.BreakerProbeInterval <= 0 {
		config.BreakerProbeInterval = 5 * time.Second
	}
	if config.ReprocessMode == "" {
		config.ReprocessMode = domain.ReprocessAll
	}
	if comps.Sink == nil {
		comps.Sink = metrics.NewNoopSink()
	}
	return &Orchestrator{
		config:     config,
		comps:      comps,
		history:    errclass.NewHistory(),
		aggregator: metrics.NewAggregator(),
		state:      StateIdle,
		clock:      time.Now,
		sleep:      sleepCtx,
	}
}

// Aggregator exposes the run's metric aggregator for summary reporting.
func (o *Orchestrator) Aggregator() *metrics.Aggregator {
	return o.aggregator
}

func (o *Orchestrator) transition(to State) {
	log.Printf("orchestrator: state %s -> %s", o.state, to)
	o.state = to
}

// Run executes one batch and returns the finalized run record. The record
// is non-nil whenever processing began; the error reports what cut the
// run short.
func (o *Orchestrator) Run(ctx context.Context) (*domain.BatchRun, error) {
	o.transition(StateSelectingConfig)
	run := domain.NewBatchRun(o.config.ProjectName, o.clock())
	log.Printf("orchestrator: run %s project=%s", run.ID, run.ProjectName)

	o.transition(StateValidating)
	if err := o.validate(); err != nil {
		return o.fail(run, err)
	}

	o.transition(StateScanning)
	candidates, err := o.comps.Scanner.Scan(o.config.ModelDirectory, o.config.Filter)
	if err != nil {
		return o.fail(run, err)
	}
	log.Printf("orchestrator: %d candidate files", len(candidates))

	o.transition(StateFiltering)
	selected, err := reprocess.SelectFromLog(o.config.ReprocessMode, o.config.ReferenceLog, candidates, o.comps.LoadReference)
	if err != nil {
		return o.fail(run, fmt.Errorf("reprocess selection: %w", err))
	}
	log.Printf("orchestrator: %d of %d files selected (mode=%s)", len(selected), len(candidates), o.config.ReprocessMode)

	// Signal files are transient artifacts; none may outlive the run.
	defer func() {
		for _, name := range selected {
			o.comps.Detector.Discard(name)
		}
	}()

	o.transition(StateProcessing)
	o.comps.Tracker.InitializeBatch(selected)
	o.comps.Sink.BatchStarted(len(selected))

	for i, name := range selected {
		if ctx.Err() != nil {
			run.Cancelled = true
			break
		}
		if !o.awaitBreaker(ctx) {
			run.Cancelled = true
			break
		}

		if err := o.comps.Tracker.UpdateFileState(name, domain.FileStatusRunning, ""); err != nil {
			log.Printf("orchestrator: %s: %v", name, err)
			continue
		}

		outcome := o.processFile(ctx, name)
		run.Files = append(run.Files, outcome)
		o.recordOutcome(ctx, run, outcome)

		eta := o.aggregator.AvgFileDuration() * time.Duration(len(selected)-i-1)
		o.report(Progress{Done: i + 1, Total: len(selected), Current: name, ETA: eta})
	}

	if ctx.Err() != nil {
		run.Cancelled = true
	}

	o.transition(StateAggregating)
	o.comps.Tracker.CompleteBatch()
	run.Finalize(o.clock())

	summary := o.aggregator.BatchSummary()
	log.Printf("orchestrator: run %s %s: %d files, %d completed, %d failed, success=%.1f%%",
		run.ID, run.Status, summary.TotalFiles, summary.Completed, summary.Failed, summary.SuccessRate)
	o.comps.Sink.BatchCompleted(string(run.Status), run.EndedAt.Sub(run.StartedAt))

	if o.comps.RunLog != nil {
		if path, err := o.comps.RunLog.Write(run); err != nil {
			log.Printf("orchestrator: write run log: %v", err)
		} else {
			log.Printf("orchestrator: run log written to %s", path)
		}
	}

	switch run.Status {
	case domain.RunStatusCancelled:
		o.transition(StateCancelled)
	case domain.RunStatusFail:
		o.transition(StateFailed)
	default:
		o.transition(StateCompleted)
	}
	return run, nil
}

func (o *Orchestrator) validate() error {
	if o.config.ProjectName == "" {
		return errors.New("project name is required")
	}
	if o.config.ModelDirectory == "" {
		return errors.New("model directory is required")
	}
	if !o.config.ReprocessMode.IsValid() {
		return fmt.Errorf("invalid reprocess mode %q", o.config.ReprocessMode)
	}
	return nil
}

// fail finalizes a run that never reached processing.
func (o *Orchestrator) fail(run *domain.BatchRun, err error) (*domain.BatchRun, error) {
	run.Details = err.Error()
	run.EndedAt = o.clock()
	run.Status = domain.RunStatusFail
	o.transition(StateFailed)
	if o.comps.RunLog != nil {
		if _, werr := o.comps.RunLog.Write(run); werr != nil {
			log.Printf("orchestrator: write run log: %v", werr)
		}
	}
	return run, err
}

// awaitBreaker blocks until the breaker admits work or ctx is cancelled.
// Returns false on cancellation.
func (o *Orchestrator) awaitBreaker(ctx context.Context) bool {
	tripped := false
	for {
		snap, err := o.comps.Snapshots.Snapshot(ctx)
		if err != nil {
			// Sampling failure must not wedge the run; the monitor keeps
			// feeding the breaker in the background.
			log.Printf("orchestrator: resource snapshot failed: %v", err)
			return ctx.Err() == nil
		}

		gateErr := o.comps.Breaker.CanContinue(snap)
		if gateErr == nil {
			return true
		}
		if errors.Is(gateErr, circuitbreaker.ErrCircuitOpen) && !tripped {
			tripped = true
			o.comps.Sink.CircuitBreakerTrip()
		}
		log.Printf("orchestrator: stalled: %v", gateErr)

		if !o.sleep(ctx, o.config.BreakerProbeInterval) {
			return false
		}
	}
}

// processFile runs one file to a terminal outcome.
func (o *Orchestrator) processFile(ctx context.Context, name string) domain.FileOutcome {
	start := o.clock()
	path := filepath.Join(o.config.ModelDirectory, name)

	outcome := func(status domain.FileStatus, details string) domain.FileOutcome {
		end := o.clock()
		return domain.FileOutcome{
			FileName:       name,
			Status:         status,
			Details:        details,
			StartedAt:      start,
			EndedAt:        end,
			ProcessingTime: end.Sub(start),
		}
	}

	if err := o.comps.Documents.Open(ctx, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return outcome(domain.FileStatusMissing, fmt.Sprintf("model file not found: %s", path))
		}
		return outcome(domain.FileStatusFail, o.describeFailure(name, err))
	}
	defer func() {
		if err := o.comps.Documents.Close(ctx, path); err != nil {
			log.Printf("orchestrator: close %s: %v", path, err)
		}
	}()

	coordinator := retry.New(o.config.Retry, o.decider(name))
	result := coordinator.Execute(ctx, name, func(ctx context.Context) (string, error) {
		return o.attempt(ctx, name, path)
	})

	switch {
	case result.Success:
		return outcome(domain.FileStatusPass, result.Details)
	case errors.Is(result.LastErr, context.Canceled):
		return outcome(domain.FileStatusCancelled, "cancelled while processing")
	case errors.Is(result.LastErr, errScriptFailure):
		return outcome(domain.FileStatusFail, result.Details)
	case errors.Is(result.LastErr, context.DeadlineExceeded):
		return outcome(domain.FileStatusTimeout, result.Details)
	default:
		return outcome(domain.FileStatusFail, o.describeFailure(name, result.LastErr))
	}
}

// attempt is one dispatch-and-wait cycle.
func (o *Orchestrator) attempt(ctx context.Context, name, path string) (string, error) {
	if err := o.comps.Dispatcher.Dispatch(ctx, path, o.config.ProjectName); err != nil {
		return "", fmt.Errorf("dispatch: %w", err)
	}

	res := o.comps.Detector.Await(ctx, name)
	switch {
	case res.Success:
		return res.Details, nil
	case res.Cancelled:
		return res.Details, context.Canceled
	case res.TimedOut:
		return res.Details, fmt.Errorf("%s: %w", res.Details, context.DeadlineExceeded)
	default:
		// The script finished and reported failure; a rerun of the same
		// script on the same file would fail the same way.
		return res.Details, errScriptFailure
	}
}

// decider builds the per-file retry decider backed by the recovery table.
func (o *Orchestrator) decider(name string) retry.Decider {
	return retry.DeciderFunc(func(err error) (bool, time.Duration) {
		if errors.Is(err, errScriptFailure) {
			o.comps.Sink.RetryAttempt(false)
			return false, 0
		}
		cat := o.history.Record(name, err)
		rec := errclass.DetermineRecovery(cat, errclass.SeverityMedium)
		o.comps.Sink.RetryAttempt(rec.ShouldRetry)
		return rec.ShouldRetry, rec.Delay
	})
}

// describeFailure folds the remediation hint into the outcome details.
func (o *Orchestrator) describeFailure(name string, err error) string {
	cat := errclass.Classify(err)
	rec := errclass.DetermineRecovery(cat, errclass.SeverityMedium)
	if rec.Steps == "" {
		return err.Error()
	}
	return fmt.Sprintf("%v (%s; %s)", err, cat, rec.Steps)
}

// recordOutcome pushes one terminal outcome through the tracker, the
// aggregator and every observer sink.
func (o *Orchestrator) recordOutcome(ctx context.Context, run *domain.BatchRun, outcome domain.FileOutcome) {
	if err := o.comps.Tracker.UpdateFileState(outcome.FileName, outcome.Status, outcome.Details); err != nil {
		log.Printf("orchestrator: %s: %v", outcome.FileName, err)
	}
	o.aggregator.RecordFileMetric(outcome.FileName, outcome)
	o.comps.Sink.FileProcessed(string(outcome.Status), outcome.ProcessingTime)

	// The durable write happens off the processing loop; the tracker copies
	// its state before the goroutine starts.
	o.comps.Tracker.CheckpointAsync(func(err error) {
		o.comps.Sink.CheckpointWritten(err == nil)
	})

	if o.comps.Outcomes != nil {
		if err := o.comps.Outcomes.Record(ctx, run.ProjectName, outcome.FileName, outcome.Status); err != nil {
			log.Printf("orchestrator: analytics: %v", err)
		}
	}
}

func (o *Orchestrator) report(p Progress) {
	if o.comps.Reporter == nil {
		return
	}
	o.comps.Reporter.Report(p)
}

// sleepCtx waits d; returns false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
