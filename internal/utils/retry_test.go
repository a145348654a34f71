// internal/utils/retry_test.go
package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetryDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("persistent")
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 4, calls)
}

func TestRetryDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy().Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIntervalGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:     10,
		InitialInterval: time.Millisecond,
		MaxInterval:     8 * time.Millisecond,
		Multiplier:      2.0,
	}

	assert.Equal(t, time.Millisecond, p.Interval(1))
	assert.Equal(t, 2*time.Millisecond, p.Interval(2))
	assert.Equal(t, 8*time.Millisecond, p.Interval(4))
	assert.Equal(t, 8*time.Millisecond, p.Interval(9), "capped at MaxInterval")
}

func TestIntervalJitterStaysBounded(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.2,
	}

	for i := 0; i < 50; i++ {
		interval := p.Interval(1)
		assert.GreaterOrEqual(t, interval, 80*time.Millisecond)
		assert.LessOrEqual(t, interval, 120*time.Millisecond)
	}
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Second), context.Canceled)
}
