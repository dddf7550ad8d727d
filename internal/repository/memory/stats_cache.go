package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// WorkspaceSnapshot is the cached document census for one user.
type WorkspaceSnapshot struct {
	DocumentCount int64
	StorageBytes  int64
}

// StatsCache caches workspace snapshots for the override rules, so every
// chat turn does not hit the database for a count.
type StatsCache struct {
	cache *cache.Cache
}

func NewStatsCache(ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &StatsCache{
		cache: cache.New(ttl, 5*time.Minute),
	}
}

func (c *StatsCache) Get(userID string) (WorkspaceSnapshot, bool) {
	if x, found := c.cache.Get(userID); found {
		return x.(WorkspaceSnapshot), true
	}
	return WorkspaceSnapshot{}, false
}

func (c *StatsCache) Set(userID string, snap WorkspaceSnapshot) {
	c.cache.Set(userID, snap, cache.DefaultExpiration)
}

// Invalidate drops the snapshot after document mutations.
func (c *StatsCache) Invalidate(userID string) {
	c.cache.Delete(userID)
}
