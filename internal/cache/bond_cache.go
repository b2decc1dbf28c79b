package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RescanFunc performs a full rescan of registered SECIDs against the
// on-chain registry, per spec.md §4.6.
type RescanFunc func(ctx context.Context) (map[string]struct{}, error)

// RegisteredBondCache is an in-memory TTL cache of the set of
// instruments registered on-chain. Concurrent rescans collapse into a
// single RPC burst via singleflight; a failed rescan returns an empty
// set without poisoning the cache, so the next call retries.
type RegisteredBondCache struct {
	mu        sync.RWMutex
	secids    map[string]struct{}
	fetchedAt time.Time
	ttl       time.Duration
	rescan    RescanFunc
	group     singleflight.Group
	now       func() time.Time
}

// NewRegisteredBondCache builds a RegisteredBondCache with the given
// TTL (default 300s per spec.md §4.6 when ttl <= 0) and rescan
// function.
func NewRegisteredBondCache(ttl time.Duration, rescan RescanFunc) *RegisteredBondCache {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &RegisteredBondCache{ttl: ttl, rescan: rescan, now: time.Now}
}

// Get returns the current registered-SECID set, triggering a rescan
// when the cached value is stale or absent.
func (c *RegisteredBondCache) Get(ctx context.Context) (map[string]struct{}, error) {
	c.mu.RLock()
	fresh := c.secids != nil && c.now().Sub(c.fetchedAt) <= c.ttl
	current := c.secids
	c.mu.RUnlock()
	if fresh {
		return current, nil
	}

	v, err, _ := c.group.Do("rescan", func() (interface{}, error) {
		result, rescanErr := c.rescan(ctx)
		if rescanErr != nil {
			// Fail open: return empty, don't poison the existing cache.
			return map[string]struct{}{}, rescanErr
		}
		c.mu.Lock()
		c.secids = result
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return result, nil
	})
	if err != nil {
		return map[string]struct{}{}, err
	}
	return v.(map[string]struct{}), nil
}
