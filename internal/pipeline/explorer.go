package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/observability"
	"golang.org/x/sync/errgroup"
)

// preloadConcurrency bounds how many preload fills wait on the cache at once.
// The fetcher serializes upstream calls regardless.
const preloadConcurrency = 4

// Boundaries is the region geometry the map is drawn from.
type Boundaries interface {
	Names() []string
	Render(styles map[string]domain.RegionStyle) ([]byte, error)
}

// ChartKind is how a chart view is drawn.
type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
)

// ChartView is everything the dashboard needs to draw one selection.
type ChartView struct {
	Token       uint64              `json:"token"`
	Key         string              `json:"key"`
	Title       string              `json:"title"`
	Granularity domain.Granularity  `json:"granularity"`
	Kind        ChartKind           `json:"kind"`
	Points      []domain.Point      `json:"points"`
	Stats       domain.SummaryStats `json:"stats"`
	Metrics     domain.MetricSet    `json:"metrics"`
	HasData     bool                `json:"has_data"`
}

// Explorer ties the location registry to the region cache and serves charts
// and map styling from it.
type Explorer struct {
	registry *domain.Registry
	cache    *RegionCache
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu         sync.RWMutex
	boundaries Boundaries

	lazy atomic.Bool
}

// NewExplorer creates an Explorer.
func NewExplorer(registry *domain.Registry, cache *RegionCache, metrics *observability.Metrics, logger *slog.Logger) *Explorer {
	return &Explorer{
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Registry returns the location registry.
func (e *Explorer) Registry() *domain.Registry { return e.registry }

// SetBoundaries installs the map geometry.
func (e *Explorer) SetBoundaries(b Boundaries) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.boundaries = b
	e.metrics.BoundaryRegions.Set(float64(len(b.Names())))
}

func (e *Explorer) currentBoundaries() Boundaries {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.boundaries
}

// Region resolves a location key and returns its cached or freshly computed entry.
func (e *Explorer) Region(ctx context.Context, key string) (domain.RegionEntry, domain.Location, error) {
	loc, err := e.registry.Lookup(key)
	if err != nil {
		return domain.RegionEntry{}, domain.Location{}, err
	}
	if loc.Fallback {
		e.logger.Warn("unregistered location, using fallback",
			"location", key, "fallback", loc.Key)
	}

	entry, err := e.cache.GetOrCompute(ctx, loc.Key, loc.Coords)
	if err != nil {
		return domain.RegionEntry{}, loc, fmt.Errorf("region %q: %w", key, err)
	}
	return entry, loc, nil
}

// Chart builds the chart view of a location at the given granularity. Daily
// charts cover the trailing year of samples.
func (e *Explorer) Chart(ctx context.Context, key string, granularity domain.Granularity) (ChartView, error) {
	entry, loc, err := e.Region(ctx, key)
	if err != nil {
		return ChartView{}, err
	}

	var points []domain.Point
	kind := ChartLine
	switch granularity {
	case domain.Monthly:
		points = entry.Monthly
	case domain.Daily:
		points = domain.DailyPoints(entry.Recent)
		kind = ChartBar
	default:
		granularity = domain.Yearly
		points = entry.Yearly
	}

	return ChartView{
		Key:         loc.Key,
		Title:       loc.Label,
		Granularity: granularity,
		Kind:        kind,
		Points:      points,
		Stats:       domain.Summarize(points, granularity, loc.Label),
		Metrics:     entry.Metrics,
		HasData:     entry.HasData(),
	}, nil
}

// regionNames lists the regions drawn on the map: the boundary features when
// geometry is loaded, otherwise every registered county.
func (e *Explorer) regionNames() []string {
	if b := e.currentBoundaries(); b != nil {
		return b.Names()
	}
	return e.registry.Counties()
}

// Choropleth styles every map region for a metric from cached entries only.
// Regions not yet cached take the no-data color.
func (e *Explorer) Choropleth(kind domain.MetricKind) map[string]domain.RegionStyle {
	names := e.regionNames()
	styles := make(map[string]domain.RegionStyle, len(names))
	for _, name := range names {
		if entry, ok := e.cache.Peek(name); ok {
			styles[name] = domain.StyleRegion(kind, &entry.Metrics)
			continue
		}
		styles[name] = domain.StyleRegion(kind, nil)
	}
	return styles
}

// ErrNoBoundaries is returned when the map is requested before geometry is loaded.
var ErrNoBoundaries = errors.New("boundary geometry not loaded")

// Map renders the styled boundary geometry for a metric.
func (e *Explorer) Map(kind domain.MetricKind) ([]byte, error) {
	b := e.currentBoundaries()
	if b == nil {
		return nil, ErrNoBoundaries
	}
	return b.Render(e.Choropleth(kind))
}

// Preload warms the cache for the given keys, or for every map region when
// keys is empty. Unknown keys and fetches the source declined are logged and
// skipped; the latter are fetched on first use instead.
func (e *Explorer) Preload(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		keys = e.regionNames()
	}
	start := time.Now()
	e.logger.Info("preload started", "regions", len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			_, _, err := e.Region(gctx, key)
			if errors.Is(err, domain.ErrUnknownLocation) {
				e.logger.Warn("preload skipped unregistered region", "location", key)
				return nil
			}
			if errors.Is(err, domain.ErrSourceUnavailable) {
				e.logger.Warn("preload skipped region, source unavailable", "location", key)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("preload: %w", err)
	}

	e.metrics.PreloadDuration.Observe(time.Since(start).Seconds())
	e.logger.Info("preload complete", "regions", len(keys), "cached", e.cache.Len(), "duration", time.Since(start))
	return nil
}

// ErrNothingCached is reported by CheckReadiness before the first region is cached.
var ErrNothingCached = errors.New("no regions cached yet")

// ServeLazily marks the explorer ready without a warm cache, for deployments
// that fill regions on first request instead of preloading.
func (e *Explorer) ServeLazily() { e.lazy.Store(true) }

// CheckReadiness returns nil once at least one region has been cached, or
// immediately after ServeLazily. Map geometry is not required: without it
// /map answers 503 while charts and region lookups keep working.
func (e *Explorer) CheckReadiness(_ context.Context) error {
	if !e.lazy.Load() && e.cache.Len() == 0 {
		return ErrNothingCached
	}
	return nil
}
