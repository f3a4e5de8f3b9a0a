package domain

import (
	"context"
	"errors"
	"time"
)

// DailySample is one day's precipitation total as reported by the archive.
type DailySample struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// Point is one value of an aggregated or charted series. Label is a year
// ("2020"), a month ("2020-06") or a date ("2020-06-01") depending on the
// granularity that produced it.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DateRange bounds an archive query. Both dates are inclusive YYYY-MM-DD.
type DateRange struct {
	Start string
	End   string
}

// MetricSet holds the three derived climate metrics for one location.
// A nil field means there was not enough history to compute it.
type MetricSet struct {
	Amount      *float64 `json:"amount"`
	Trend       *float64 `json:"trend"`
	Variability *float64 `json:"variability"`
}

// Value returns the metric of the given kind.
func (m MetricSet) Value(kind MetricKind) *float64 {
	switch kind {
	case MetricAmount:
		return m.Amount
	case MetricTrend:
		return m.Trend
	case MetricVariability:
		return m.Variability
	default:
		return nil
	}
}

// RegionEntry is the fully derived record for one location. It is built once
// from a single archive fetch and never modified afterwards.
type RegionEntry struct {
	Key        string        `json:"key"`
	Metrics    MetricSet     `json:"metrics"`
	Yearly     []Point       `json:"yearly"`
	Monthly    []Point       `json:"monthly"`
	Recent     []DailySample `json:"recent"`
	ComputedAt time.Time     `json:"computed_at"`
}

// HasData reports whether the upstream returned any samples for the entry.
func (e RegionEntry) HasData() bool {
	return len(e.Yearly) > 0
}

// DailySource retrieves daily precipitation samples for a coordinate.
// Implementations degrade to an empty slice on failure rather than
// returning an error.
type DailySource interface {
	FetchDaily(ctx context.Context, at Coordinates, dates DateRange) []DailySample
}

// ErrSourceUnavailable is returned by a GuardedSource that declined a fetch
// without reaching the upstream.
var ErrSourceUnavailable = errors.New("daily source unavailable")

// GuardedSource is a DailySource that can decline a call outright, for
// example while a circuit breaker is open. A declined call is not a result
// and must not be cached. Upstream failures still degrade to an empty series
// with a nil error.
type GuardedSource interface {
	DailySource
	TryFetchDaily(ctx context.Context, at Coordinates, dates DateRange) ([]DailySample, error)
}

// RecentDays is how many trailing daily samples back the daily chart.
const RecentDays = 365

// BuildRegionEntry runs aggregation and metric derivation over a daily series.
func BuildRegionEntry(key string, daily []DailySample) RegionEntry {
	yearly := AggregateYearly(daily)
	return RegionEntry{
		Key:        key,
		Metrics:    ComputeMetrics(yearly),
		Yearly:     yearly,
		Monthly:    AggregateMonthly(daily),
		Recent:     RecentDaily(daily, RecentDays),
		ComputedAt: clock.Now().UTC(),
	}
}
