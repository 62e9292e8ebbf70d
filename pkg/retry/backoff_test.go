package retry

import (
	"context"
	"testing"
	"time"
)

func TestLinearBackoff(t *testing.T) {
	backoff := NewLinearBackoff(30 * time.Second)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 90 * time.Second},
	}

	for _, test := range tests {
		if got := backoff.NextDelay(test.attempt); got != test.expected {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.expected, got)
		}
	}
}

func TestLinearBackoffStrictlyIncreasing(t *testing.T) {
	backoff := NewLinearBackoff(time.Second)

	prev := time.Duration(0)
	for attempt := 1; attempt <= 5; attempt++ {
		delay := backoff.NextDelay(attempt)
		if delay <= prev {
			t.Errorf("attempt %d: delay %v not greater than previous %v", attempt, delay, prev)
		}
		prev = delay
	}
}

func TestLinearBackoffMaxDelay(t *testing.T) {
	backoff := &LinearBackoff{Base: time.Minute, MaxDelay: 90 * time.Second}

	if got := backoff.NextDelay(5); got != 90*time.Second {
		t.Errorf("expected cap at 90s, got %v", got)
	}
}

func TestConstantBackoff(t *testing.T) {
	backoff := &ConstantBackoff{Delay: 5 * time.Second}

	for attempt := 1; attempt <= 3; attempt++ {
		if got := backoff.NextDelay(attempt); got != 5*time.Second {
			t.Errorf("attempt %d: expected 5s, got %v", attempt, got)
		}
	}
}

func TestWaitCompletes(t *testing.T) {
	start := time.Now()
	if err := Wait(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("wait returned after %v, expected at least 10ms", elapsed)
	}
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Minute); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWaitZeroDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Zero delay returns immediately even with a cancelled context.
	if err := Wait(ctx, 0); err != nil {
		t.Errorf("expected nil for zero delay, got %v", err)
	}
}
