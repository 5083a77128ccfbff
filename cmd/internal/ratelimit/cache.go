package ratelimit

import (
	"sync"
	"time"
)

// DefaultIdleTTL is how long a bucket may go untouched before the janitor
// evicts it. An evicted identity starts over with a full bucket on its next
// request.
const DefaultIdleTTL = 10 * time.Minute

type cacheEntry struct {
	bucket     *Bucket
	lastAccess time.Time // guarded by Cache.mu
}

// Cache holds one bucket per identity key and evicts idle entries in the
// background. It is safe for concurrent use.
type Cache struct {
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewCache starts a cache whose janitor sweeps at sweepEvery and evicts
// entries idle longer than idleTTL. Close must be called to stop the janitor.
func NewCache(idleTTL, sweepEvery time.Duration) *Cache {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	c := &Cache{
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.janitor(sweepEvery)
	return c
}

// Get returns the bucket for key, creating a full one under policy if none
// exists, and marks the entry as recently used.
func (c *Cache) Get(key string, policy Policy) *Bucket {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.lastAccess = now
		return e.bucket
	}
	e := &cacheEntry{bucket: NewBucket(policy, now), lastAccess: now}
	c.entries[key] = e
	return e.bucket
}

// Len reports the number of live buckets.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the janitor and waits for it to exit. Safe to call repeatedly.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Cache) janitor(sweepEvery time.Duration) {
	defer close(c.done)
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.sweep(c.now())
		}
	}
}

func (c *Cache) sweep(now time.Time) {
	cutoff := now.Add(-c.idleTTL)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.lastAccess.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
