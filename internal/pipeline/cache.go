package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/observability"
	"golang.org/x/sync/singleflight"
)

// RegionObserver is told about every newly computed region entry.
type RegionObserver interface {
	RegionComputed(ctx context.Context, entry domain.RegionEntry)
}

// DateRangeFunc picks the archive window for a fill.
type DateRangeFunc func() domain.DateRange

// RegionCache memoizes fetched and derived region entries by location key.
// Each key is fetched at most once for the life of the cache, including when
// the fetch degraded to an empty series. A fetch the source declined (see
// domain.GuardedSource) is not stored, so the next lookup tries again.
// Entries are never evicted.
type RegionCache struct {
	source   domain.DailySource
	dates    DateRangeFunc
	observer RegionObserver
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string]domain.RegionEntry
	group   singleflight.Group
}

// NewRegionCache creates an empty cache over a daily source. A nil dates
// func uses domain.DefaultDateRange.
func NewRegionCache(source domain.DailySource, dates DateRangeFunc, metrics *observability.Metrics, logger *slog.Logger) *RegionCache {
	if dates == nil {
		dates = domain.DefaultDateRange
	}
	return &RegionCache{
		source:  source,
		dates:   dates,
		metrics: metrics,
		logger:  logger,
		entries: make(map[string]domain.RegionEntry),
	}
}

// SetObserver registers the observer notified after each fill. Call before
// the cache is shared.
func (c *RegionCache) SetObserver(o RegionObserver) {
	c.observer = o
}

// GetOrCompute returns the entry for key, fetching and deriving it on first
// use. Concurrent callers for the same key share one fill. The fill is not
// tied to any one caller: a caller whose ctx ends stops waiting and gets
// ctx.Err(), while the fill completes and is stored for everyone else.
func (c *RegionCache) GetOrCompute(ctx context.Context, key string, at domain.Coordinates) (domain.RegionEntry, error) {
	if entry, ok := c.Peek(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry, nil
	}

	fillCtx := context.WithoutCancel(ctx)
	var led bool
	ch := c.group.DoChan(key, func() (interface{}, error) {
		led = true
		return c.fill(fillCtx, key, at)
	})

	select {
	case res := <-ch:
		if led {
			c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		} else {
			c.metrics.CacheLookups.WithLabelValues("shared").Inc()
		}
		if res.Err != nil {
			return domain.RegionEntry{}, res.Err
		}
		return res.Val.(domain.RegionEntry), nil
	case <-ctx.Done():
		return domain.RegionEntry{}, ctx.Err()
	}
}

func (c *RegionCache) fill(ctx context.Context, key string, at domain.Coordinates) (domain.RegionEntry, error) {
	// A fill that finished between the caller's Peek and DoChan already stored it.
	if entry, ok := c.Peek(key); ok {
		return entry, nil
	}

	daily, err := c.fetch(ctx, at)
	if err != nil {
		c.logger.Warn("region fetch declined, not cached", "location", key, "error", err)
		return domain.RegionEntry{}, err
	}
	entry := domain.BuildRegionEntry(key, daily)

	c.mu.Lock()
	c.entries[key] = entry
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.CacheEntries.Set(float64(n))

	if !entry.HasData() {
		c.logger.Warn("region cached without data", "location", key)
	} else {
		c.logger.Info("region cached", "location", key, "years", len(entry.Yearly))
	}

	if c.observer != nil {
		c.observer.RegionComputed(ctx, entry)
	}
	return entry, nil
}

func (c *RegionCache) fetch(ctx context.Context, at domain.Coordinates) ([]domain.DailySample, error) {
	if g, ok := c.source.(domain.GuardedSource); ok {
		return g.TryFetchDaily(ctx, at, c.dates())
	}
	return c.source.FetchDaily(ctx, at, c.dates()), nil
}

// Peek returns a cached entry without computing it.
func (c *RegionCache) Peek(key string) (domain.RegionEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Len is the number of cached entries.
func (c *RegionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
