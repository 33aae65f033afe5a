// Package lru implements a size- and age-bounded cache with deferred eviction.
//
// Entries expire once their last access is older than the TTL. When an
// insertion pushes the cache above MaxEntries, one eviction pass is handed to
// an idle.Scheduler instead of running inline, so a burst of inserts can leave
// the cache above its bound until the pass runs. Each pass removes every
// expired entry plus the single least recently accessed entry.
package lru

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/proximity/idle"
)

const (
	DefaultMaxEntries = 1000
	DefaultTTL        = 3 * time.Hour
)

// Options tune the cache. The zero value is usable.
type Options struct {
	MaxEntries int           // 0 => DefaultMaxEntries
	TTL        time.Duration // 0 => DefaultTTL

	// Idle runs eviction passes. nil => idle.Go.
	Idle idle.Scheduler

	// Now is the clock used for access stamps. nil => time.Now.
	Now func() time.Time

	// OnEvict observes each pass that removed something. Called without the
	// cache lock held.
	OnEvict func(expired, lru int)
}

type entry[V any] struct {
	value V
	last  time.Time
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	m       map[K]*entry[V]
	max     int
	ttl     time.Duration
	idle    idle.Scheduler
	now     func() time.Time
	onEvict func(expired, lru int)

	// one pass outstanding at most
	pending bool
}

func New[K comparable, V any](opts Options) *Cache[K, V] {
	c := &Cache[K, V]{
		m:       make(map[K]*entry[V]),
		max:     opts.MaxEntries,
		ttl:     opts.TTL,
		idle:    opts.Idle,
		now:     opts.Now,
		onEvict: opts.OnEvict,
	}
	if c.max <= 0 {
		c.max = DefaultMaxEntries
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.idle == nil {
		c.idle = idle.Go
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the value for k and refreshes its access stamp.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	e.last = c.now()
	return e.value, true
}

// Set stores v under k and returns v. If the cache is now above MaxEntries an
// eviction pass is scheduled.
func (c *Cache[K, V]) Set(k K, v V) V {
	c.mu.Lock()
	c.m[k] = &entry[V]{value: v, last: c.now()}
	schedule := len(c.m) > c.max && !c.pending
	if schedule {
		c.pending = true
	}
	c.mu.Unlock()

	if schedule {
		c.schedule()
	}
	return v
}

// Delete removes k if present.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	delete(c.m, k)
	c.mu.Unlock()
}

// DeleteIf removes k if present and pred accepts its value. It does not
// touch the access stamp.
func (c *Cache[K, V]) DeleteIf(k K, pred func(V) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[k]
	if !ok || !pred(e.value) {
		return false
	}
	delete(c.m, k)
	return true
}

// Clear empties the cache immediately.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.m = make(map[K]*entry[V])
	c.mu.Unlock()
}

// Len reports the current number of entries, which may transiently exceed
// MaxEntries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// deferredEvict runs a pass and chains another while the cache is still above
// its bound, so a burst of inserts is trimmed one LRU entry per pass.
func (c *Cache[K, V]) deferredEvict() {
	c.Evict()

	c.mu.Lock()
	again := len(c.m) > c.max
	c.pending = again
	c.mu.Unlock()

	if again {
		c.schedule()
	}
}

// schedule hands a pass to the idle scheduler. If the scheduler refuses it,
// the pending mark is cleared so the next Set over the bound tries again.
func (c *Cache[K, V]) schedule() {
	if c.idle.Schedule(c.deferredEvict) {
		return
	}
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}

// Evict runs one eviction pass now: every entry not accessed within the TTL is
// removed, and so is the least recently accessed entry even if it has not
// expired. It reports how many entries of each kind were removed; lru is 0
// when the least recently used entry had already expired.
func (c *Cache[K, V]) Evict() (expired, lru int) {
	c.mu.Lock()
	cutoff := c.now().Add(-c.ttl)

	var (
		lruKey  K
		lruLast time.Time
		found   bool
	)
	for k, e := range c.m {
		if !found || e.last.Before(lruLast) {
			lruKey, lruLast, found = k, e.last, true
		}
		if e.last.Before(cutoff) {
			delete(c.m, k)
			expired++
		}
	}
	if found {
		if _, still := c.m[lruKey]; still {
			delete(c.m, lruKey)
			lru = 1
		}
	}
	c.mu.Unlock()

	if c.onEvict != nil && expired+lru > 0 {
		c.onEvict(expired, lru)
	}
	return expired, lru
}
