package cache

import (
	"sync"
	"time"
)

// Item represents a cached value with expiration
type Item[V any] struct {
	Data      V
	ExpiresAt time.Time
}

// Cache is a simple in-memory TTL cache safe for concurrent use
type Cache[V any] struct {
	items map[string]*Item[V]
	mutex sync.RWMutex
	now   func() time.Time
}

// New creates a new cache instance
func New[V any]() *Cache[V] {
	return &Cache[V]{
		items: make(map[string]*Item[V]),
		now:   time.Now,
	}
}

// Get retrieves an item from the cache. Expired items are removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()
	if !exists {
		return zero, false
	}

	if c.now().After(item.ExpiresAt) {
		c.mutex.Lock()
		// re-check: another writer may have refreshed the entry
		if current, ok := c.items[key]; ok && current == item {
			delete(c.items, key)
		}
		c.mutex.Unlock()
		return zero, false
	}

	return item.Data, true
}

// Set stores an item in the cache with TTL
func (c *Cache[V]) Set(key string, data V, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &Item[V]{
		Data:      data,
		ExpiresAt: c.now().Add(ttl),
	}
}

// Delete removes an item from the cache
func (c *Cache[V]) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache[V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*Item[V])
}

// Len returns the number of stored items, expired ones included
func (c *Cache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}
