package collector

import (
	"context"
	"sync"
	"time"

	"TrendSentinel/internal/logger"
	"TrendSentinel/internal/metrics"
	"TrendSentinel/internal/model"
)

// SnapshotCache is one cached snapshot with its expiry policy.
type SnapshotCache struct {
	Data      *model.Snapshot
	FetchedAt time.Time
	TTL       time.Duration
}

// IsStale reports whether the entry must be refetched at now.
func (c *SnapshotCache) IsStale(now time.Time) bool {
	if c == nil || c.Data == nil {
		return true
	}
	return !now.Before(c.FetchedAt.Add(c.TTL))
}

// SnapshotStore is a shared second-level cache keyed by segment.
type SnapshotStore interface {
	Get(ctx context.Context, segment string) (*model.Snapshot, error)
	Set(ctx context.Context, snap *model.Snapshot, ttl time.Duration) error
}

// CachedProvider serves realtime snapshots from a TTL cache in front of a
// Provider. Failed or empty fetches are not cached. History calls pass through.
type CachedProvider struct {
	Provider
	ttl     time.Duration
	store   SnapshotStore
	metrics *metrics.Registry
	now     func() time.Time

	mu    sync.Mutex
	entry *SnapshotCache
}

// NewCachedProvider wraps p; store may be nil.
func NewCachedProvider(p Provider, ttl time.Duration, store SnapshotStore, m *metrics.Registry) *CachedProvider {
	return &CachedProvider{Provider: p, ttl: ttl, store: store, metrics: m, now: time.Now}
}

func (c *CachedProvider) FetchRealtimeSnapshot(ctx context.Context) (*model.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !c.entry.IsStale(now) {
		c.metrics.ObserveCache("memory", true)
		return c.entry.Data, nil
	}
	c.metrics.ObserveCache("memory", false)

	segment := string(c.Kind())
	if c.store != nil {
		snap, err := c.store.Get(ctx, segment)
		if err != nil {
			logger.Warn("snapshot store get %s: %v", segment, err)
		}
		c.metrics.ObserveCache("redis", snap != nil)
		if snap != nil {
			c.entry = &SnapshotCache{Data: snap, FetchedAt: snap.FetchedAt, TTL: c.ttl}
			if !c.entry.IsStale(now) {
				return snap, nil
			}
		}
	}

	logger.Info("fetching %s realtime snapshot from %s (cache ttl %s)", segment, c.Name(), c.ttl)
	snap, err := c.Provider.FetchRealtimeSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		return snap, nil
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = now
	}
	snap.Segment = segment
	c.entry = &SnapshotCache{Data: snap, FetchedAt: snap.FetchedAt, TTL: c.ttl}
	if c.store != nil {
		if err := c.store.Set(ctx, snap, c.ttl); err != nil {
			logger.Warn("snapshot store set %s: %v", segment, err)
		}
	}
	return snap, nil
}
