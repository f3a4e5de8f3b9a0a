package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/observability"
	"github.com/couchcryptid/rainfall-explorer/internal/pipeline"
)

// --- mocks ---

// countingSource serves a fixed series per coordinate and counts fetches.
// Coordinates with a gate block until the gate is closed.
type countingSource struct {
	calls   atomic.Int32
	started chan domain.Coordinates

	mu     sync.Mutex
	series map[domain.Coordinates][]domain.DailySample
	gates  map[domain.Coordinates]chan struct{}
	ctxErr []error
}

func newCountingSource() *countingSource {
	return &countingSource{
		started: make(chan domain.Coordinates, 64),
		series:  make(map[domain.Coordinates][]domain.DailySample),
		gates:   make(map[domain.Coordinates]chan struct{}),
	}
}

func (s *countingSource) serve(at domain.Coordinates, daily []domain.DailySample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[at] = daily
}

func (s *countingSource) gate(at domain.Coordinates) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	s.gates[at] = g
	return g
}

func (s *countingSource) FetchDaily(ctx context.Context, at domain.Coordinates, _ domain.DateRange) []domain.DailySample {
	s.calls.Add(1)
	s.started <- at

	s.mu.Lock()
	g := s.gates[at]
	s.mu.Unlock()
	if g != nil {
		<-g
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErr = append(s.ctxErr, ctx.Err())
	return append([]domain.DailySample(nil), s.series[at]...)
}

func (s *countingSource) fetchContextErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.ctxErr...)
}

// decliningSource is a guarded countingSource that declines its first
// `declines` fetches without serving them.
type decliningSource struct {
	*countingSource
	declines atomic.Int32
}

func newDecliningSource(n int32) *decliningSource {
	s := &decliningSource{countingSource: newCountingSource()}
	s.declines.Store(n)
	return s
}

func (s *decliningSource) TryFetchDaily(ctx context.Context, at domain.Coordinates, dates domain.DateRange) ([]domain.DailySample, error) {
	if s.declines.Add(-1) >= 0 {
		return nil, domain.ErrSourceUnavailable
	}
	return s.FetchDaily(ctx, at, dates), nil
}

type recordingObserver struct {
	mu      sync.Mutex
	entries []domain.RegionEntry
}

func (o *recordingObserver) RegionComputed(_ context.Context, entry domain.RegionEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, entry)
}

func (o *recordingObserver) keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, len(o.entries))
	for i, e := range o.entries {
		keys[i] = e.Key
	}
	return keys
}

type fakeBoundaries struct {
	names []string
}

func (b fakeBoundaries) Names() []string { return b.names }

func (b fakeBoundaries) Render(styles map[string]domain.RegionStyle) ([]byte, error) {
	return json.Marshal(styles)
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedRange() domain.DateRange {
	return domain.DateRange{Start: "1940-01-01", End: "2024-12-31"}
}

// yearlySeries produces two samples per year whose yearly total is perYear.
func yearlySeries(from, to int, perYear float64) []domain.DailySample {
	var daily []domain.DailySample
	for y := from; y <= to; y++ {
		daily = append(daily,
			domain.DailySample{Date: fmt.Sprintf("%d-01-15", y), Value: perYear / 2},
			domain.DailySample{Date: fmt.Sprintf("%d-07-15", y), Value: perYear / 2},
		)
	}
	return daily
}

type testEnv struct {
	source   *countingSource
	registry *domain.Registry
	cache    *pipeline.RegionCache
	explorer *pipeline.Explorer
	metrics  *observability.Metrics
}

func newTestEnv() *testEnv {
	source := newCountingSource()
	metrics := observability.NewMetricsForTesting()
	cache := pipeline.NewRegionCache(source, fixedRange, metrics, discardLogger())
	registry := domain.SouthDakota()
	return &testEnv{
		source:   source,
		registry: registry,
		cache:    cache,
		explorer: pipeline.NewExplorer(registry, cache, metrics, discardLogger()),
		metrics:  metrics,
	}
}

func (e *testEnv) coords(key string) domain.Coordinates {
	loc, err := e.registry.Lookup(key)
	if err != nil {
		panic(err)
	}
	return loc.Coords
}
