// Package cache provides a small bounded key/value cache with per-entry
// expiry and least-recently-used eviction. It backs the memory and
// knowledge similarity-search paths, where repeated queries within a short
// window would otherwise hit the embedding gateway on every turn.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a TTL + LRU cache safe for concurrent use. Expired entries are
// purged lazily on access, there is no background sweeper. Both Get and Set
// refresh an entry's recency.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently touched
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache holding at most maxSize entries, each visible for ttl
// after its last Set. A ttl of zero means entries never expire.
func New[V any](maxSize int, ttl time.Duration) *Cache[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache[V]{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if c.ttl > 0 && !c.now().Before(ent.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set stores value under key with a fresh expiry, evicting the least
// recently touched entries while the cache is over capacity.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})

	for len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry[V]).key)
	}
}

// Len returns the number of stored entries, including not-yet-purged
// expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// SetClock overrides the time source. Intended for tests.
func (c *Cache[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
