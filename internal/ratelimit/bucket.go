// Package ratelimit provides a process-local token bucket used to keep
// outbound calls to external services inside their request budget.
package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a token bucket with a fixed capacity and a steady refill rate.
// Acquire never blocks; callers decide whether to reject or back off.
// Safe for concurrent use.
type Bucket struct {
	mu       sync.Mutex
	capacity float64
	rate     float64 // tokens per second
	tokens   float64
	last     time.Time
	now      func() time.Time
}

// NewBucket creates a full bucket holding capacity tokens that refills at
// rate tokens per second.
func NewBucket(capacity, rate float64) *Bucket {
	b := &Bucket{
		capacity: capacity,
		rate:     rate,
		tokens:   capacity,
		now:      time.Now,
	}
	b.last = b.now()
	return b
}

// Acquire takes one token if available and reports whether it succeeded.
// The refill-then-deduct sequence runs under a single critical section.
func (b *Bucket) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Tokens returns the current token count after refill, for diagnostics.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

// refill credits tokens for the time elapsed since the last refill, capped
// at capacity. Callers must hold b.mu.
func (b *Bucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.last = now
}
