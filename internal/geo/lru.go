package geo

import (
	"container/list"
	"sync"
	"time"
)

// lruCache is a bounded IP -> Result cache with per-entry TTL and
// least-recently-used eviction. Safe for concurrent use. The clock is
// injected so TTL expiry is testable.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key      string
	value    *Result
	storedAt time.Time
}

func newLRUCache(capacity int, ttl time.Duration, now func() time.Time) *lruCache {
	if now == nil {
		now = time.Now
	}
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// get returns the cached value for key, dropping it if the TTL has
// elapsed since insertion.
func (c *lruCache) get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.value, true
}

func (c *lruCache) put(key string, value *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{
		key:      key,
		value:    value,
		storedAt: c.now(),
	})
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
