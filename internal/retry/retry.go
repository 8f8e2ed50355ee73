// Package retry holds the bounded retry policy shared by the window
// attach path and the store connection.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, use normal backoff
)

// Policy bounds how often and how fast an operation is retried.
// MaxAttempts counts the first try.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Clock          clockwork.Clock
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action
type Operation[T any] func() (T, error)

// Budget returns a policy allowing retries extra attempts after the first.
func Budget(retries int, initial time.Duration, clock clockwork.Clock) Policy {
	if retries < 0 {
		retries = 0
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return Policy{
		MaxAttempts:    retries + 1,
		InitialBackoff: initial,
		MaxBackoff:     30 * initial,
		Clock:          clock,
	}
}

// Backoff returns the wait before attempt (2-based: the first retry is attempt 2).
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 2; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// Allows reports whether attempt is within the policy.
func (p Policy) Allows(attempt int) bool {
	return attempt <= p.MaxAttempts
}

// Do runs op until it succeeds, classify says Stop, the attempts run out or
// ctx is done.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if classify(err) == Stop {
			var zero T
			return zero, &PermanentError{Err: err}
		}

		if attempt == p.MaxAttempts {
			var zero T
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		backoff := p.Backoff(attempt + 1)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-p.Clock.After(backoff):
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	panic("unreachable: MaxAttempts must be >= 1")
}

// DoVoid is Do for operations without a result.
func DoVoid(ctx context.Context, p Policy, classify Classify, op func() error) error {
	_, err := Do(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// AlwaysRetry treats every error as transient.
func AlwaysRetry(error) Action { return Retry }

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
