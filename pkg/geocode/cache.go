package geocode

import "sync"

// cache memoizes resolved forward lookups for the life of the client. Entries
// are never invalidated and never persisted.
type cache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

func newCache() *cache {
	return &cache{entries: make(map[string]Result)}
}

func (c *cache) get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// put stores r under key unless an entry already exists; the first writer wins.
func (c *cache) put(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	r.Err = nil
	r.Cached = false
	c.entries[key] = r
}

func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
