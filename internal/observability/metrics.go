package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rainfall"

// Metrics holds the Prometheus counters, histograms, and gauges for the explorer.
type Metrics struct {
	// Archive fetcher metrics.
	ArchiveRequests        *prometheus.CounterVec // labels: outcome={success,error,empty,circuit_open}
	ArchiveRequestDuration prometheus.Histogram
	RateLimitWait          prometheus.Histogram

	// Region cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,shared}
	CacheEntries prometheus.Gauge

	// Session metrics.
	SessionsActive       prometheus.Gauge
	SelectionsSuperseded prometheus.Counter

	// Region publisher metrics.
	RegionsPublished prometheus.Counter
	PublishErrors    prometheus.Counter

	PreloadDuration prometheus.Histogram
	BoundaryRegions prometheus.Gauge
}

// NewMetrics creates and registers all explorer metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ArchiveRequests,
		m.ArchiveRequestDuration,
		m.RateLimitWait,
		m.CacheLookups,
		m.CacheEntries,
		m.SessionsActive,
		m.SelectionsSuperseded,
		m.RegionsPublished,
		m.PublishErrors,
		m.PreloadDuration,
		m.BoundaryRegions,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArchiveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_requests_total",
			Help:      "Precipitation archive requests by outcome.",
		}, []string{"outcome"}),
		ArchiveRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_request_duration_seconds",
			Help:      "Precipitation archive request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RateLimitWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_rate_limit_wait_seconds",
			Help:      "Time spent waiting for the archive rate limiter.",
			Buckets:   []float64{0, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_cache_lookups_total",
			Help:      "Region cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "region_cache_entries",
			Help:      "Number of regions held in the cache.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open dashboard sessions.",
		}),
		SelectionsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_superseded_total",
			Help:      "Chart selections discarded because a newer one was issued.",
		}),
		RegionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_published_total",
			Help:      "Region entries written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_publish_errors_total",
			Help:      "Region entries that failed to publish.",
		}),
		PreloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "preload_duration_seconds",
			Help:      "Duration of a full county preload.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		BoundaryRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boundary_regions",
			Help:      "Number of boundary regions loaded for the map.",
		}),
	}
}
