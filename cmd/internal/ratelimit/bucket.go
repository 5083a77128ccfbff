// Package ratelimit provides per-identity token buckets with interval refill,
// an evicting in-process cache of buckets, and an HTTP admission gate.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Policy fixes a bucket's capacity and refill schedule. A bucket's policy is
// frozen at creation; changing limits takes effect only for buckets created
// afterwards.
type Policy struct {
	// Capacity is the maximum number of tokens the bucket holds.
	Capacity int64

	// RefillTokens is how many tokens are added per elapsed RefillInterval.
	RefillTokens int64

	// RefillInterval is the refill period. Tokens arrive in whole-interval
	// jumps at interval boundaries, not continuously.
	RefillInterval time.Duration
}

// Valid reports whether the policy is usable.
func (p Policy) Valid() bool {
	return p.Capacity > 0 && p.RefillTokens > 0 && p.RefillInterval > 0
}

func (p Policy) String() string {
	return fmt.Sprintf("%d/%s (cap %d)", p.RefillTokens, p.RefillInterval, p.Capacity)
}

// Bucket is a token bucket with interval refill. All methods are safe for
// concurrent use; token accounting happens under a per-bucket mutex, so
// concurrent takers can never oversell capacity.
type Bucket struct {
	policy Policy

	mu         sync.Mutex
	tokens     int64
	lastRefill time.Time // start of the current refill interval
}

// NewBucket returns a full bucket governed by policy.
func NewBucket(policy Policy, now time.Time) *Bucket {
	return &Bucket{
		policy:     policy,
		tokens:     policy.Capacity,
		lastRefill: now,
	}
}

// Policy returns the bucket's frozen policy.
func (b *Bucket) Policy() Policy { return b.policy }

// Take attempts to consume one token at time now. On success it returns
// (true, remaining, 0). On exhaustion it returns (false, 0, wait) where wait
// is the time until the next refill boundary.
func (b *Bucket) Take(now time.Time) (allowed bool, remaining int64, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)

	if b.tokens > 0 {
		b.tokens--
		return true, b.tokens, 0
	}
	return false, 0, b.lastRefill.Add(b.policy.RefillInterval).Sub(now)
}

// refillLocked credits tokens for every whole interval elapsed since
// lastRefill and advances lastRefill by exactly that many intervals, keeping
// the boundary grid stable.
func (b *Bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.policy.RefillInterval {
		return
	}

	n := int64(elapsed / b.policy.RefillInterval)
	b.tokens += n * b.policy.RefillTokens
	if b.tokens > b.policy.Capacity {
		b.tokens = b.policy.Capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(n) * b.policy.RefillInterval)
}
