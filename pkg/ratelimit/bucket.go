// Package ratelimit provides the backpressure primitives the pipeline puts
// between itself and external services, decoupled from the batch loops so
// the policy is testable on its own.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Bucket is a token bucket: capacity tokens, one token refilled every
// refill period. Wait blocks until a token is available or the context is
// cancelled.
type Bucket struct {
	mu       sync.Mutex
	capacity int
	tokens   int
	refill   time.Duration
	last     time.Time
	now      func() time.Time
}

func NewBucket(capacity int, refill time.Duration) *Bucket {
	if capacity < 1 {
		capacity = 1
	}
	return &Bucket{
		capacity: capacity,
		tokens:   capacity,
		refill:   refill,
		last:     time.Now(),
		now:      time.Now,
	}
}

// Wait takes one token, sleeping until the next refill when the bucket is
// empty.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		wait, ok := b.take()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Allow takes a token without blocking.
func (b *Bucket) Allow() bool {
	_, ok := b.take()
	return ok
}

func (b *Bucket) take() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refill > 0 {
		now := b.now()
		elapsed := now.Sub(b.last)
		if refilled := int(elapsed / b.refill); refilled > 0 {
			b.tokens += refilled
			if b.tokens > b.capacity {
				b.tokens = b.capacity
			}
			b.last = b.last.Add(time.Duration(refilled) * b.refill)
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return 0, true
	}
	if b.refill <= 0 {
		return 0, true
	}
	return b.refill - b.now().Sub(b.last), false
}

// Jitter sleeps a random duration in [min, max), the politeness delay used
// between scraping calls. Honors context cancellation.
func Jitter(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
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
