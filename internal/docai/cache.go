package docai

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value      any
	lastAccess time.Time
}

// SessionCache is a bounded map with last-access expiry. It replaces the
// process-global session cache of earlier iterations: TTL and capacity are
// supplied by the caller and eviction is explicit.
type SessionCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewSessionCache(ttl time.Duration, maxEntries int) *SessionCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &SessionCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached value and refreshes its last-access time.
func (c *SessionCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry.lastAccess = c.now()
	return entry.value, true
}

// Put stores a value, evicting the least recently used entry when full.
func (c *SessionCache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = &cacheEntry{value: value, lastAccess: c.now()}
}

// Delete removes an entry explicitly.
func (c *SessionCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the current number of live entries.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	return len(c.entries)
}

func (c *SessionCache) evictExpiredLocked() {
	cutoff := c.now().Add(-c.ttl)
	for key, entry := range c.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}

func (c *SessionCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = entry.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
