// Package cache holds resolved context snapshots between reads.
//
// Entries are keyed by (level, owner id) and expire after a TTL. A cached
// resolution does not record which ancestors it was built from, so
// invalidation is by level alone: a write at level L evicts every entry
// at or below L, whether or not it descends from the written owner.
//
// Population is guarded by a generation counter: every invalidation bumps
// it, and a resolver stores its result only if the generation it observed
// before reading the backing store is still current. A slow resolver that
// read before a write therefore cannot re-insert its stale snapshot after
// the write's eviction.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"stratum/internal/hierarchy"
)

// Key addresses one cached resolution.
type Key struct {
	Level   hierarchy.Level
	OwnerID string
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Cache is a TTL-bounded LRU of resolved values, safe for concurrent use.
type Cache[V any] struct {
	lru    *expirable.LRU[Key, V]
	hits   atomic.Int64
	misses atomic.Int64

	// mu orders invalidations against guarded Puts; gen counts them.
	mu  sync.Mutex
	gen uint64
}

// New returns a cache holding at most maxEntries values for at most ttl.
// maxEntries <= 0 removes the size bound; ttl <= 0 disables expiry.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		lru: expirable.NewLRU[Key, V](maxEntries, nil, ttl),
	}
}

// Get returns the cached value for (level, ownerID). Expired entries
// count as misses.
func (c *Cache[V]) Get(level hierarchy.Level, ownerID string) (V, bool) {
	v, ok := c.lru.Get(Key{Level: level, OwnerID: ownerID})
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Generation returns the current invalidation counter. Snapshot it before
// reading the backing store and pass it to Put so a racing invalidation
// discards the result.
func (c *Cache[V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Put stores a freshly resolved value, replacing any previous entry for
// the same owner and restarting its TTL. The value is dropped when any
// invalidation ran after the caller's generation snapshot: the caller's
// read may predate the write that triggered it. Reports whether the value
// was stored.
func (c *Cache[V]) Put(level hierarchy.Level, ownerID string, gen uint64, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.lru.Add(Key{Level: level, OwnerID: ownerID}, value)
	return true
}

// Invalidate drops the entry for (level, ownerID), if present.
func (c *Cache[V]) Invalidate(level hierarchy.Level, ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Remove(Key{Level: level, OwnerID: ownerID})
}

// InvalidateAtOrBelow drops every entry at the written level or any more
// specific one. A write to a project can change what any branch or task
// resolves to, and entries do not know their ancestry, so eviction keys
// off the level only.
func (c *Cache[V]) InvalidateAtOrBelow(level hierarchy.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, k := range c.lru.Keys() {
		if hierarchy.AtOrBelow(k.Level, level) {
			c.lru.Remove(k)
		}
	}
}

// Purge empties the cache and resets the counters.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Snapshot returns the hit and miss counters alongside the entry count.
func (c *Cache[V]) Snapshot() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.lru.Len(),
	}
}
