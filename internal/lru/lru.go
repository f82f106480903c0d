// Package lru implements a generic, concurrency-safe, cost-weighted LRU
// cache, matching the API exposed by golang.org/x/tools/gopls/internal/util/lru
// (New, Set, Get). The parse-tree, macro-expansion and diagnostic-report
// caches of this module are instances of this cache, each with its own
// capacity as named in spec.md; the generated-interface registry keeps its
// own refcount-zero list in internal/interfaces instead.
package lru

import (
	"container/list"
	"sync"
)

// Cache is a fixed-capacity, cost-weighted, least-recently-used cache.
// Capacity and cost share a unit chosen by the caller (bytes, or simply
// "1 per entry" for a fixed-count cache).
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	ll       *list.List // front = most recently used
	items    map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key   K
	value V
	cost  int64
}

// New creates a Cache with the given capacity. A capacity <= 0 means
// entries are evicted immediately after insertion (useful for disabling
// caching in tests without branching call sites).
func New[K comparable, V any](capacity int64) *Cache[K, V] {
	return &Cache[K, V]{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
	}
}

// Get returns the value for key, promoting it to most-recently-used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set inserts or replaces key's value and cost, evicting least-recently-used
// entries until the cache is within capacity.
func (c *Cache[K, V]) Set(key K, value V, cost int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		old := el.Value.(*entry[K, V])
		c.size += int64(cost) - old.cost
		old.value = value
		old.cost = int64(cost)
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry[K, V]{key: key, value: value, cost: int64(cost)})
		c.items[key] = el
		c.size += int64(cost)
	}

	for c.size > c.capacity && c.ll.Len() > 0 {
		c.evictOldest()
	}
}

// Delete removes key from the cache, if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// DeleteFunc removes every entry for which keep returns false.
func (c *Cache[K, V]) DeleteFunc(keep func(key K, value V) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for el := c.ll.Front(); el != nil; el = next {
		next = el.Next()
		e := el.Value.(*entry[K, V])
		if !keep(e.key, e.value) {
			c.removeElement(el)
		}
	}
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache[K, V]) evictOldest() {
	el := c.ll.Back()
	if el != nil {
		c.removeElement(el)
	}
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	e := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, e.key)
	c.size -= e.cost
}
