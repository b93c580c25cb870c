package cache

import (
	"sync"
	"time"
)

// Entry is a cached item with an expiration time.
type Entry struct {
	Value      []byte
	Expiration time.Time
}

// Expired checks if the cache entry has passed its expiration.
func (e *Entry) Expired() bool {
	return time.Now().After(e.Expiration)
}

// Memory is a simple in-memory byte cache with TTL eviction.
type Memory struct {
	items map[string]*Entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewMemory creates a memory cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	c := &Memory{
		items: make(map[string]*Entry),
		ttl:   ttl,
	}

	go c.cleanupExpired()

	return c
}

// Set stores a value in the cache.
func (c *Memory) Set(key string, value []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &Entry{
		Value:      value,
		Expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache.
func (c *Memory) Get(key string) ([]byte, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.Expired() {
		return nil, false
	}
	return entry.Value, true
}

// Size returns the number of items in the cache.
func (c *Memory) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// cleanupExpired removes expired entries periodically.
func (c *Memory) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		for key, entry := range c.items {
			if entry.Expired() {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Artwork caches embedded cover images keyed by content hash so repeated
// scans do not re-extract identical art.
type Artwork struct {
	*Memory
}

// NewArtwork creates an artwork cache with a long TTL; covers change
// only when files change.
func NewArtwork() *Artwork {
	return &Artwork{Memory: NewMemory(time.Hour)}
}
