package callout

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

// Policy controls how many times a logical callout is attempted and how long
// to wait between attempts. A Policy is immutable and safe to share across
// operations.
type Policy struct {
	// MaxAttempts caps transport invocations for one logical callout.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt. Each subsequent
	// wait doubles it.
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means two hours.
	MaxDelay time.Duration

	// Retryable decides whether a failed outcome is worth another attempt.
	// Nil means DefaultRetryable.
	Retryable func(Outcome) bool
}

// DefaultPolicy returns the policy applied when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// DefaultRetryable treats rate limiting, server-side errors and transport
// failures as transient. Other client errors are final on first sight.
func DefaultRetryable(o Outcome) bool {
	switch o.Class {
	case ClassRateLimited, ClassServerError, ClassTransportFailure, ClassTimeout:
		return true
	default:
		return false
	}
}

// Executor wraps a Transport with retry and backoff. Every attempt, failed or
// not, is handed to the Recorder before the retry decision is made.
type Executor struct {
	transport Transport
	recorder  *Recorder
	logger    hclog.Logger

	// sleep waits between attempts. Swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor. recorder may be nil, in which case
// attempts are not persisted.
func NewExecutor(transport Transport, recorder *Recorder, logger hclog.Logger) *Executor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Executor{
		transport: transport,
		recorder:  recorder,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Execute runs one logical callout under policy. It returns the outcome of
// the last attempt; callers inspect Outcome.Success rather than the error,
// which is non-nil only for contract violations or a canceled context.
func (e *Executor) Execute(ctx context.Context, req Request, policy Policy) (Outcome, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}
	schedule := newSchedule(policy)

	var out Outcome
	for attempt := 1; ; attempt++ {
		var err error
		out, err = e.transport.Send(ctx, req)
		if err != nil {
			return Outcome{}, err
		}
		if e.recorder != nil {
			e.recorder.Record(ctx, req, out)
		}

		// Success wins before any retry consideration.
		if out.Success() {
			return out, nil
		}
		if !retryable(out) || attempt >= policy.MaxAttempts {
			return out, nil
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return out, nil
		}
		e.logger.Debug("retrying callout",
			"endpoint", req.Endpoint,
			"path", req.Path,
			"attempt", attempt,
			"class", out.Class,
			"delay", delay,
		)
		if err := e.sleep(ctx, delay); err != nil {
			return out, err
		}
	}
}

// newSchedule builds the doubling backoff series base, 2*base, 4*base, ...
// capped at MaxDelay. Randomization is off so the series is reproducible.
func newSchedule(policy Policy) *backoff.ExponentialBackOff {
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Hour
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
