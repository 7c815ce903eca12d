package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// BusyRangeCache memoizes external-calendar busy ranges per
// (tenant, fromMinute, toMinute), collapsing concurrent identical-window
// fetches through a singleflight group. Entries expire after ttl and a
// booking confirm/cancel invalidates every entry for its tenant.
type BusyRangeCache struct {
	ttl   time.Duration
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	tenants map[uuid.UUID]map[string]struct{}
}

type cacheEntry struct {
	ranges    []BusyRange
	expiresAt time.Time
}

// NewBusyRangeCache builds a cache with the given entry TTL.
func NewBusyRangeCache(ttl time.Duration) *BusyRangeCache {
	return &BusyRangeCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		tenants: make(map[uuid.UUID]map[string]struct{}),
	}
}

func cacheKey(tenantID uuid.UUID, from, to time.Time) string {
	return fmt.Sprintf("%s:%d:%d", tenantID, from.Truncate(time.Minute).Unix(), to.Truncate(time.Minute).Unix())
}

// Get returns the cached busy ranges for the window, calling fetch on a
// miss or expiry. Concurrent callers for the same key share one fetch.
func (c *BusyRangeCache) Get(ctx context.Context, tenantID uuid.UUID, from, to time.Time, fetch func(context.Context) ([]BusyRange, error)) ([]BusyRange, error) {
	key := cacheKey(tenantID, from, to)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.ranges, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	ranges, _ := v.([]BusyRange)

	c.mu.Lock()
	c.entries[key] = cacheEntry{ranges: ranges, expiresAt: time.Now().Add(c.ttl)}
	if c.tenants[tenantID] == nil {
		c.tenants[tenantID] = make(map[string]struct{})
	}
	c.tenants[tenantID][key] = struct{}{}
	c.mu.Unlock()

	return ranges, nil
}

// Invalidate drops every cached entry for tenantID. Call this on booking
// confirm, cancel, and reschedule.
func (c *BusyRangeCache) Invalidate(tenantID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.tenants[tenantID] {
		delete(c.entries, key)
	}
	delete(c.tenants, tenantID)
}
