package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if tb.Allow() {
		t.Error("request over capacity should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("second request should be denied before refill")
	}

	time.Sleep(25 * time.Millisecond)

	if !tb.Allow() {
		t.Error("request after refill period should be allowed")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)

	tb.Allow()
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	tb.Reset()
	if !tb.Allow() {
		t.Error("request after reset should be allowed")
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tb.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait did not return promptly after cancellation")
	}
}

func TestWaitReturnsWhenTokenAvailable(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)

	if err := tb.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
