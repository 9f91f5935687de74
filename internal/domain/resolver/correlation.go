package resolver

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	DefaultCorrelationCacheSize = 10000
	DefaultCorrelationTTL       = 10 * time.Minute
)

type correlationEntry struct {
	target    Target
	expiresAt time.Time
}

// CorrelationCache maps a request correlation key to the target captured for its user
// turn. It is bounded: the least recently used entry is evicted when full, and entries
// expire after the TTL.
type CorrelationCache struct {
	// mu makes the read and remove in Take a single step.
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewCorrelationCache(size int, ttl time.Duration) (*CorrelationCache, error) {
	if size <= 0 {
		size = DefaultCorrelationCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCorrelationTTL
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create correlation cache: %w", err)
	}
	return &CorrelationCache{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (c *CorrelationCache) Put(key string, target Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, correlationEntry{target: target, expiresAt: c.now().Add(c.ttl)})
}

// Take returns the target recorded under key and removes the entry.
// Concurrent callers with the same key see the target at most once.
func (c *CorrelationCache) Take(key string) (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.cache.Peek(key)
	if !ok {
		return Target{}, false
	}
	c.cache.Remove(key)

	entry, ok := value.(correlationEntry)
	if !ok || c.expired(entry) {
		return Target{}, false
	}
	return entry.target, true
}

// Remove drops key without reading it.
func (c *CorrelationCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(key)
}

// Contains reports whether key holds an unexpired entry. An expired entry is dropped.
func (c *CorrelationCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.cache.Peek(key)
	if !ok {
		return false
	}
	entry, ok := value.(correlationEntry)
	if !ok || c.expired(entry) {
		c.cache.Remove(key)
		return false
	}
	return true
}

func (c *CorrelationCache) expired(entry correlationEntry) bool {
	return c.now().After(entry.expiresAt)
}

func (c *CorrelationCache) Len() int {
	return c.cache.Len()
}
