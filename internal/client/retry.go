package client

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy is an explicit retry-policy value: bounded attempts with
// exponential backoff and optional jitter. It drives the access gate's
// waiting loop and is unit-testable without any scheduling framework.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the fraction of the computed delay randomized on top of
	// it (0 disables jitter, handy in tests).
	Jitter float64
}

// DefaultRetryPolicy bounds the wait for webhook-driven record visibility
// to a few seconds overall.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Jitter:      0.2,
	}
}

// Delay returns the backoff before retry number attempt (zero-based):
// BaseDelay doubled each attempt, capped at MaxDelay, plus jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}

	if p.Jitter > 0 {
		delay += time.Duration(rand.Float64() * p.Jitter * float64(delay))
	}

	return delay
}

// Wait blocks for Delay(attempt), returning early with the context error
// if the caller goes away. The wait is timer-scheduled, never a busy
// loop.
func (p RetryPolicy) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
