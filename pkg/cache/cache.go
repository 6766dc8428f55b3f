package cache

import (
	"sync"
	"time"
)

// item is a stored value with its expiry deadline
type item struct {
	value   interface{}
	expires time.Time
}

// Cache is a thread-safe TTL cache. Chain reads dominate this service's
// latency, so balances and market snapshots are held for a short window
// and re-fetched after it lapses. Values are stored as-is; callers own
// the type assertion on the way out.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
}

// New creates a Cache whose entries live for ttl. A background sweeper
// evicts lapsed entries so the map doesn't grow with dead keys.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]item),
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Get returns the value for key when present and not lapsed
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || time.Now().After(it.expires) {
		return nil, false
	}
	return it.value, true
}

// Set stores value under key for the cache's TTL
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item{value: value, expires: time.Now().Add(c.ttl)}
}

// Delete removes key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]item)
}

// Size returns the number of stored entries, lapsed ones included until
// the next sweep
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, it := range c.items {
				if now.After(it.expires) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Stop terminates the background sweeper. Safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.done) })
}
