// Package translate contains the translation pipeline's middle layer: the
// bounded result cache, the retrying client wrapper around a provider, and
// the per-speaker scheduler that throttles how often a still-growing
// utterance is re-translated.
package translate

import (
	"sync"
)

// cacheKey identifies one translation result. Texts are cached per language
// pair so switching the output language never serves stale entries.
type cacheKey struct {
	source string
	target string
	text   string
}

// Cache is a bounded first-in-first-out translation cache. Insertion order is
// eviction order; lookups do not refresh an entry's position.
//
// Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]string
	order    []cacheKey
}

// NewCache creates a cache holding at most capacity entries. A capacity of
// zero or less disables caching.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make(map[cacheKey]string),
	}
}

// Get returns the cached translation for the given text and language pair.
func (c *Cache) Get(source, target, text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	translated, ok := c.entries[cacheKey{source, target, text}]
	return translated, ok
}

// Put stores a translation, evicting the oldest entry when full.
func (c *Cache) Put(source, target, text, translated string) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{source, target, text}
	if _, ok := c.entries[key]; ok {
		c.entries[key] = translated
		return
	}
	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = translated
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]string)
	c.order = nil
}
