/*
Package ratelimit implements a token-bucket limiter sized in document-store
Request Units (RU) rather than request counts. Callers consume a
caller-supplied RU cost per operation; the bucket refills continuously at
the container's provisioned throughput.
*/
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket is a thread-safe token bucket. Capacity and refill rate are both
// expressed in RU/s; a full bucket holds up to Capacity RU of burst.
type Bucket struct {
	mu sync.Mutex

	capacity   float64
	refillRate float64 // RU per second
	tokens     float64
	lastRefill time.Time

	now func() time.Time
}

// NewBucket constructs a Bucket starting full, refilling at refillRatePerSec
// RU/s up to capacity RU.
func NewBucket(capacity, refillRatePerSec float64) *Bucket {
	return &Bucket{
		capacity:   capacity,
		refillRate: refillRatePerSec,
		tokens:     capacity,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// Consume blocks until cost RU are available, then deducts them. It returns
// early with ctx.Err() if ctx is canceled while waiting. A cost larger than
// the bucket's capacity is clamped to capacity: the caller otherwise blocks
// forever since the bucket never accumulates enough to satisfy it.
func (b *Bucket) Consume(ctx context.Context, cost float64) error {
	if cost > b.capacity {
		cost = b.capacity
	}
	for {
		b.mu.Lock()
		b.refillLocked()
		if b.tokens >= cost {
			b.tokens -= cost
			b.mu.Unlock()
			return nil
		}
		deficit := cost - b.tokens
		wait := time.Duration(deficit / b.refillRate * float64(time.Second))
		b.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available reports the current token count without consuming any, after
// applying the refill owed since the last call.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

// SetRate adjusts the refill rate, e.g. after the throttle controller
// observes a change in provisioned throughput.
func (b *Bucket) SetRate(refillRatePerSec float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	b.refillRate = refillRatePerSec
}
