package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestBucketAllowRefills(t *testing.T) {
	current := time.Unix(0, 0)
	b := NewBucket(2, time.Second)
	b.last = current
	b.now = func() time.Time { return current }

	if !b.Allow() || !b.Allow() {
		t.Fatal("a fresh bucket must hold its full capacity")
	}
	if b.Allow() {
		t.Fatal("empty bucket must refuse a token")
	}

	current = current.Add(time.Second)
	if !b.Allow() {
		t.Fatal("expected one token after one refill period")
	}
	if b.Allow() {
		t.Fatal("only one token should have refilled")
	}

	current = current.Add(10 * time.Second)
	if !b.Allow() || !b.Allow() {
		t.Fatal("refill must restore tokens up to capacity")
	}
	if b.Allow() {
		t.Fatal("refill must not exceed capacity")
	}
}

func TestBucketWaitHonorsCancellation(t *testing.T) {
	b := NewBucket(1, time.Hour)
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("first wait should not block: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestJitterStaysInRange(t *testing.T) {
	start := time.Now()
	if err := Jitter(context.Background(), time.Millisecond, 5*time.Millisecond); err != nil {
		t.Fatalf("jitter failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Millisecond {
		t.Fatalf("jitter returned too early: %v", elapsed)
	}
}
