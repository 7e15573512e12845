// Package retry provides the bounded retry policy shared by network-bound
// collaborators (page fetching, PDF download, webhook delivery).
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how an operation is retried: how many attempts in total
// and how the wait between them grows.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// Default is the policy used for site fetches, mirroring the scheduler's
// tolerance: three attempts with exponential backoff starting at two seconds.
func Default() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// Do runs op, retrying transient failures per the policy. Retrying stops
// early when ctx is canceled or when op returns an error wrapped with
// Permanent. The last error is returned after the attempts are exhausted.
func (p Policy) Do(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = 0 // attempts are bounded by count, not wall clock

	attempts := uint64(0)
	if p.MaxAttempts > 0 {
		attempts = uint64(p.MaxAttempts - 1)
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, attempts), ctx))
}

// Permanent marks err as not retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
