// Package retry provides a bounded exponential backoff policy shared by
// the network-facing adapters.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Default policy values, tuned for rate-limited HTTP APIs.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// Permanent wraps an error to mark it as non-retryable. Do stops
// immediately and returns the wrapped error.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }

func (p *Permanent) Unwrap() error { return p.Err }

// Policy describes bounded exponential backoff with jitter. The zero
// value is not usable; construct with Default or fill all fields.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the delay after the first failure. Each subsequent
	// failure doubles it, capped at MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Jitter adds up to the given fraction (0..1) of random extra delay
	// so concurrent callers do not retry in lockstep.
	Jitter float64
}

// Default returns the policy used by the adapters.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      0.2,
	}
}

// Do runs fn until it succeeds, returns a Permanent error, the context
// is cancelled, or MaxAttempts is exhausted. The last error is
// returned; inputs are never silently dropped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		wait := delay
		if p.Jitter > 0 {
			wait += time.Duration(rand.Float64() * p.Jitter * float64(delay))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return lastErr
}
