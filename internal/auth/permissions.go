package auth

import (
	"log/slog"
	"sync"
	"time"
)

// EndpointRoleSource loads the endpoint-role map from the backing store.
type EndpointRoleSource interface {
	AllEndpointRoles() (map[string][]int64, error)
}

// PermissionCache holds a snapshot of the endpoint-role table so the
// per-request authorization check never hits the database. The snapshot is
// reloaded once it is older than the configured TTL.
type PermissionCache struct {
	source EndpointRoleSource
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	entries  map[string][]int64
	loadedAt time.Time
}

func NewPermissionCache(source EndpointRoleSource, ttl time.Duration, logger *slog.Logger) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{
		source: source,
		ttl:    ttl,
		logger: logger,
	}
}

// Load forces a snapshot refresh. Called once at startup so a broken
// endpoint-role table fails the boot rather than the first request.
func (c *PermissionCache) Load() error {
	entries, err := c.source.AllEndpointRoles()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = entries
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("permission cache loaded", "endpoints", len(entries))
	return nil
}

// RoleIDs returns the allowed role IDs for an endpoint name, or an empty
// slice when the endpoint has no mapping.
func (c *PermissionCache) RoleIDs(endpoint string) ([]int64, error) {
	c.mu.RLock()
	stale := c.entries == nil || time.Since(c.loadedAt) > c.ttl
	ids := c.entries[endpoint]
	c.mu.RUnlock()

	if !stale {
		return ids, nil
	}

	if err := c.Load(); err != nil {
		// Serve the stale snapshot if we have one; a refresh failure
		// should not lock every caller out.
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.entries != nil {
			c.logger.Warn("permission cache refresh failed, serving stale snapshot", "error", err)
			return c.entries[endpoint], nil
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[endpoint], nil
}
