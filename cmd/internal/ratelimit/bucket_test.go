package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBucket_ExhaustAndRefill(t *testing.T) {
	policy := Policy{Capacity: 3, RefillTokens: 3, RefillInterval: time.Minute}
	start := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	b := NewBucket(policy, start)

	for i := int64(0); i < 3; i++ {
		allowed, remaining, _ := b.Take(start)
		if !allowed {
			t.Fatalf("take %d: expected allowed", i)
		}
		if remaining != 2-i {
			t.Fatalf("take %d: remaining = %d, want %d", i, remaining, 2-i)
		}
	}

	allowed, _, retryAfter := b.Take(start.Add(10 * time.Second))
	if allowed {
		t.Fatalf("expected denial on empty bucket")
	}
	if retryAfter != 50*time.Second {
		t.Fatalf("retryAfter = %v, want 50s (distance to interval boundary)", retryAfter)
	}

	// Just before the boundary, still empty: refill is a discrete jump, not a
	// continuous trickle.
	if allowed, _, _ := b.Take(start.Add(59 * time.Second)); allowed {
		t.Fatalf("no tokens may appear before the interval boundary")
	}

	// At the boundary the full batch arrives.
	allowed, remaining, _ := b.Take(start.Add(time.Minute))
	if !allowed || remaining != 2 {
		t.Fatalf("after boundary: (allowed, remaining) = (%v, %d), want (true, 2)", allowed, remaining)
	}
}

func TestBucket_RefillCapsAtCapacity(t *testing.T) {
	policy := Policy{Capacity: 5, RefillTokens: 5, RefillInterval: time.Minute}
	start := time.Now()
	b := NewBucket(policy, start)

	// Idle across many intervals must not bank more than capacity.
	allowed, remaining, _ := b.Take(start.Add(30 * time.Minute))
	if !allowed || remaining != 4 {
		t.Fatalf("(allowed, remaining) = (%v, %d), want (true, 4)", allowed, remaining)
	}
}

func TestBucket_ConcurrentTakeNoOversell(t *testing.T) {
	policy := Policy{Capacity: 50, RefillTokens: 50, RefillInterval: time.Hour}
	now := time.Now()
	b := NewBucket(policy, now)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := b.Take(now); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("allowed %d of 200 concurrent takes, want exactly capacity (50)", got)
	}
}

func TestCache_GetCreatesAndReuses(t *testing.T) {
	c := NewCache(DefaultIdleTTL, time.Minute)
	defer c.Close()

	policy := Policy{Capacity: 2, RefillTokens: 2, RefillInterval: time.Minute}
	b1 := c.Get("user:alice", policy)
	b2 := c.Get("user:alice", policy)
	if b1 != b2 {
		t.Fatalf("same key must yield the same bucket")
	}
	if b3 := c.Get("user:bob", policy); b3 == b1 {
		t.Fatalf("distinct keys must yield distinct buckets")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestCache_SweepEvictsIdle(t *testing.T) {
	c := NewCache(10*time.Minute, time.Hour)
	defer c.Close()

	policy := Policy{Capacity: 2, RefillTokens: 2, RefillInterval: time.Minute}

	base := time.Now()
	c.now = func() time.Time { return base }
	old := c.Get("ip:10.0.0.1", policy)
	old.Take(base)
	old.Take(base) // drained

	c.now = func() time.Time { return base.Add(9 * time.Minute) }
	c.Get("ip:10.0.0.2", policy)

	// 10.0.0.1 has been idle for 11 minutes, 10.0.0.2 for 2.
	c.sweep(base.Add(11 * time.Minute))
	if c.Len() != 1 {
		t.Fatalf("Len after sweep = %d, want 1", c.Len())
	}

	// The evicted identity starts over with a full bucket.
	c.now = func() time.Time { return base.Add(11 * time.Minute) }
	fresh := c.Get("ip:10.0.0.1", policy)
	if fresh == old {
		t.Fatalf("expected a new bucket after eviction")
	}
	if ok, remaining, _ := fresh.Take(base.Add(11 * time.Minute)); !ok || remaining != 1 {
		t.Fatalf("fresh bucket after eviction: (ok, remaining) = (%v, %d), want (true, 1)", ok, remaining)
	}
}
