// Package cache provides a small thread-safe generic cache.
package cache

import "sync"

// Cache maps keys to values. A bounded cache drops its oldest entries once
// it holds more than its limit.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	order []K
	limit int
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func NewBoundedCache[K comparable, V any](limit int) *Cache[K, V] {
	c := NewCache[K, V]()
	c.limit = limit
	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok && c.limit > 0 {
		c.order = append(c.order, key)
		for len(c.order) > c.limit {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
	}
	c.items[key] = value
}

// GetOrSet returns the cached value for key, computing and storing it with fn
// on a miss. fn runs without the lock held.
func (c *Cache[K, V]) GetOrSet(key K, fn func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := fn()
	c.Set(key, v)
	return v
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
	c.order = nil
}
