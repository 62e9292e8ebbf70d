// Package retry provides backoff strategies and a cancellable wait used by
// the rate-limited fetcher between throttled attempts.
package retry

import (
	"context"
	"time"
)

// BackoffStrategy defines the interface for computing retry delays.
type BackoffStrategy interface {
	// NextDelay returns the delay before the attempt following attempt.
	NextDelay(attempt int) time.Duration
}

// LinearBackoff scales the delay with the attempt index: attempt n waits
// n times the base unit, so successive delays are strictly increasing.
type LinearBackoff struct {
	// Base is the unit delay multiplied by the attempt index.
	Base time.Duration
	// MaxDelay caps the delay when positive.
	MaxDelay time.Duration
}

// NewLinearBackoff returns a linear backoff with the given base unit.
func NewLinearBackoff(base time.Duration) *LinearBackoff {
	return &LinearBackoff{Base: base}
}

// NextDelay computes base times attempt, capped at MaxDelay when set.
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := lb.Base * time.Duration(attempt)
	if lb.MaxDelay > 0 && delay > lb.MaxDelay {
		delay = lb.MaxDelay
	}
	return delay
}

// ConstantBackoff waits the same delay between every attempt.
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns the constant delay.
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait sleeps for delay or until the context is cancelled. The wait is a
// suspending select, so a sleeping request never blocks other requests.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
