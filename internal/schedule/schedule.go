// Package schedule turns a cron expression into a loop of unattended
// recurring batch runs.
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field cron expressions.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is a parsed cron expression evaluated in a fixed timezone.
type Schedule struct {
	spec cron.Schedule
	loc  *time.Location
}

// Parse builds a Schedule from a five-field cron expression. An empty
// timezone means UTC.
func Parse(expression, timezone string) (*Schedule, error) {
	spec, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", timezone, err)
	}
	return &Schedule{spec: spec, loc: loc}, nil
}

// Next returns the first run instant after t.
func (s *Schedule) Next(t time.Time) time.Time {
	return s.spec.Next(t.In(s.loc))
}

// Source yields run instants. Schedule is the production implementation.
type Source interface {
	Next(after time.Time) time.Time
}

// Job is one unattended batch run.
type Job func(ctx context.Context)

// Runner fires a job at every instant its source yields, until the context
// is cancelled. Runs never overlap: the next instant is computed only
// after the previous job returns.
type Runner struct {
	source Source
	clock  func() time.Time
}

// NewRunner creates a Runner over source.
func NewRunner(source Source) *Runner {
	return &Runner{source: source, clock: time.Now}
}

// Run blocks, firing job per the source's schedule, and returns once ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context, job Job) {
	for {
		next := r.source.Next(r.clock())
		log.Printf("schedule: next run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(r.clock()))
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("schedule: stopped")
			return
		case <-timer.C:
		}

		job(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}
