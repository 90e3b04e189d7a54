// Package cache provides a generic in-memory LRU cache with TTL, used for
// short-lived response caching on the serving path.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a bounded LRU cache with per-entry TTL.
type LRUCache[K comparable, V any] struct {
	cache      map[K]*entry[K, V]
	order      *list.List
	capacity   int
	defaultTTL time.Duration
	mu         sync.RWMutex
}

type entry[K comparable, V any] struct {
	expiresAt time.Time
	element   *list.Element
	key       K
	value     V
}

// NewLRUCache creates a cache holding at most capacity entries, expiring
// them after defaultTTL unless Set overrides it.
func NewLRUCache[K comparable, V any](capacity int, defaultTTL time.Duration) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &LRUCache[K, V]{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		cache:      make(map[K]*entry[K, V]),
		order:      list.New(),
	}
}

// Get retrieves a live value and promotes it to most recently used. Expired
// entries are dropped on access.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		var zero V
		return zero, false
	}

	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set stores a value with the given TTL (defaultTTL when ttl <= 0), evicting
// the least recently used entries beyond capacity.
func (c *LRUCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.cache) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	e.element = c.order.PushFront(e)
	c.cache[key] = e
}

// SetWithDefaultTTL stores a value using the default TTL.
func (c *LRUCache[K, V]) SetWithDefaultTTL(key K, value V) {
	c.Set(key, value, c.defaultTTL)
}

// Remove deletes a specific entry.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok {
		c.removeEntry(e)
		return true
	}
	return false
}

// Size returns the current number of entries, expired ones included.
func (c *LRUCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Capacity returns the configured maximum entry count.
func (c *LRUCache[K, V]) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capacity
}

// Clear removes all entries.
func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[K]*entry[K, V])
	c.order.Init()
}

// CleanupExpired removes all expired entries and reports how many.
func (c *LRUCache[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toDelete []*entry[K, V]
	for _, e := range c.cache {
		if now.After(e.expiresAt) {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		c.removeEntry(e)
	}
	return len(toDelete)
}

// lock held
func (c *LRUCache[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	if e, ok := oldest.Value.(*entry[K, V]); ok {
		c.removeEntry(e)
	}
}

// lock held
func (c *LRUCache[K, V]) removeEntry(e *entry[K, V]) {
	c.order.Remove(e.element)
	delete(c.cache, e.key)
}
