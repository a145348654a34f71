// internal/utils/retry.go
package utils

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is an explicit retry configuration: bounded attempts with
// jittered exponential backoff. Waits are cancellable through the context
// rather than unconditional sleeps.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFraction  float64
}

// DefaultRetryPolicy returns the policy used for transient storage and
// connection failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.2,
	}
}

// Interval returns the backoff delay before the given attempt (1-based).
func (p RetryPolicy) Interval(attempt int) time.Duration {
	interval := float64(p.InitialInterval)
	for i := 1; i < attempt; i++ {
		interval *= p.Multiplier
		if interval >= float64(p.MaxInterval) {
			interval = float64(p.MaxInterval)
			break
		}
	}
	if p.JitterFraction > 0 {
		jitter := interval * p.JitterFraction
		interval = interval - jitter + rand.Float64()*2*jitter
	}
	if interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	return time.Duration(interval)
}

// Do runs fn until it succeeds, the attempts are exhausted, or the context
// is cancelled. The last error is returned on failure.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := SleepContext(ctx, p.Interval(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

// SleepContext waits for the duration or until the context is cancelled,
// whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
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
