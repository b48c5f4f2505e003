// Package retry executes an operation under a bounded retry budget with a
// selectable backoff policy. Retry eligibility and base delays come from the
// recovery decider, not from this package, so policy lives in one place.
package retry

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// Policy selects how the base delay grows across attempts.
type Policy string

const (
	PolicyFixed       Policy = "fixed"
	PolicyLinear      Policy = "linear"
	PolicyExponential Policy = "exponential"
)

func (p Policy) IsValid() bool {
	switch p {
	case PolicyFixed, PolicyLinear, PolicyExponential:
		return true
	}
	return false
}

// jitterFraction is the +/- bound applied to every backoff delay so retries
// across concurrently-orchestrated runs never align into storms.
const jitterFraction = 0.10

// Config holds coordinator tuning. Zero fields take defaults from DefaultConfig.
type Config struct {
	// MaxAttempts bounds the total number of attempts, including the first.
	MaxAttempts int
	// Policy selects the backoff growth curve.
	Policy Policy
	// MaxDelay clamps the grown delay before jitter.
	MaxDelay time.Duration
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Policy:      PolicyExponential,
		MaxDelay:    30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if !c.Policy.IsValid() {
		c.Policy = d.Policy
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	return c
}

// Operation is one unit of work. The returned details are surfaced on the
// terminal outcome whether or not the operation succeeded.
type Operation func(ctx context.Context) (details string, err error)

// Decider decides whether a failed attempt is worth retrying and how long
// to wait before the next attempt. The error classifier's recovery table
// provides the production implementation.
type Decider interface {
	Decide(err error) (shouldRetry bool, delay time.Duration)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(err error) (bool, time.Duration)

func (f DeciderFunc) Decide(err error) (bool, time.Duration) { return f(err) }

// Result is the terminal outcome of one Execute call. Per-key retry state
// lives only inside the call and is discarded with it.
type Result struct {
	Success  bool
	Details  string
	Attempts int
	LastErr  error
}

// Coordinator runs operations with bounded retries and jittered backoff.
type Coordinator struct {
	config  Config
	decider Decider
	rand    *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Coordinator.
func New(config Config, decider Decider) *Coordinator {
	return &Coordinator{
		config:  config.withDefaults(),
		decider: decider,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   sleepCtx,
	}
}

// Execute runs op until it succeeds, the decider declines a retry, the
// budget is exhausted, or ctx is cancelled. The backoff wait between
// attempts is cancellable.
func (c *Coordinator) Execute(ctx context.Context, key string, op Operation) Result {
	var (
		lastErr     error
		lastDetails string
		baseDelay   time.Duration
	)

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.Jittered(Backoff(c.config.Policy, baseDelay, attempt-1, c.config.MaxDelay))
			log.Printf("retry: key=%s attempt=%d backoff=%s", key, attempt+1, delay.Round(time.Millisecond))
			if err := c.sleep(ctx, delay); err != nil {
				return Result{Details: lastDetails, Attempts: attempt, LastErr: err}
			}
		}

		details, err := op(ctx)
		if err == nil {
			return Result{Success: true, Details: details, Attempts: attempt + 1}
		}
		lastErr = err
		lastDetails = details

		if ctx.Err() != nil {
			return Result{Details: lastDetails, Attempts: attempt + 1, LastErr: ctx.Err()}
		}

		shouldRetry, delay := c.decider.Decide(err)
		if !shouldRetry {
			log.Printf("retry: key=%s non-retryable: %v", key, err)
			return Result{Details: lastDetails, Attempts: attempt + 1, LastErr: lastErr}
		}
		baseDelay = delay
	}

	log.Printf("retry: key=%s budget exhausted after %d attempts: %v", key, c.config.MaxAttempts, lastErr)
	return Result{Details: lastDetails, Attempts: c.config.MaxAttempts, LastErr: lastErr}
}

// Backoff returns the pre-jitter delay before retry number attempt
// (zero-based): fixed keeps the base, linear grows base*(attempt+1),
// exponential doubles per attempt. The result is clamped to maxDelay, so
// the sequence is non-decreasing.
func Backoff(policy Policy, base time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	var d time.Duration
	switch policy {
	case PolicyFixed:
		d = base
	case PolicyLinear:
		d = base * time.Duration(attempt+1)
	case PolicyExponential:
		d = base << uint(attempt)
		if d <= 0 { // overflow
			d = maxDelay
		}
	default:
		d = base
	}
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

// Jittered applies +/-10% random jitter to d.
func (c *Coordinator) Jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := (c.rand.Float64()*2 - 1) * jitterFraction * float64(d)
	return d + time.Duration(jitter)
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
