// Package retry runs remote calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// DefaultBaseDelay is used when a Policy leaves BaseDelay unset.
// Tests override this to avoid real sleeps.
var DefaultBaseDelay = 500 * time.Millisecond

// Policy bounds the retries of one call site
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// permanent marks an error that must not be retried
type permanent struct{ err error }

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }

// Permanent wraps err so Do returns it without retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, or retries run out.
// The delay doubles each attempt starting at BaseDelay. Cancellation of ctx
// during a wait returns ctx.Err(). The last error from fn is returned unwrapped.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil || attempt >= p.MaxRetries {
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * base
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
