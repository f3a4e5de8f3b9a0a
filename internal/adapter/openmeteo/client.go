package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the Open-Meteo historical archive endpoint.
const DefaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// Options configures a Client. Zero values take the defaults noted per field.
type Options struct {
	BaseURL     string        // DefaultBaseURL
	Timeout     time.Duration // 30s
	MinInterval time.Duration // 1.1s between calls
	Unit        string        // "inch"
	Timezone    string        // "America/Chicago"
	Clock       clockwork.Clock
}

// Client implements domain.DailySource against the Open-Meteo archive API.
// Every call through one Client shares a single Limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	unit       string
	timezone   string
	limiter    *Limiter
	circuit    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 1100 * time.Millisecond
	}
	if opts.Unit == "" {
		opts.Unit = "inch"
	}
	if opts.Timezone == "" {
		opts.Timezone = "America/Chicago"
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		unit:       opts.Unit,
		timezone:   opts.Timezone,
		limiter:    NewLimiter(opts.MinInterval, opts.Clock),
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openmeteo-archive",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		metrics: metrics,
		logger:  logger,
	}
}

var (
	errUpstreamStatus = errors.New("unexpected archive status")
	errMalformed      = errors.New("malformed archive payload")
)

// FetchDaily returns the daily precipitation series for a coordinate. Any
// failure is logged and yields an empty series.
func (c *Client) FetchDaily(ctx context.Context, at domain.Coordinates, dates domain.DateRange) []domain.DailySample {
	samples, err := c.TryFetchDaily(ctx, at, dates)
	if err != nil {
		return []domain.DailySample{}
	}
	return samples
}

// TryFetchDaily is FetchDaily that reports a declined call. It returns
// domain.ErrSourceUnavailable when the circuit is open or ctx ends while
// waiting on the rate limiter; the upstream was not asked in either case.
// Every upstream failure still degrades to an empty series and a nil error.
func (c *Client) TryFetchDaily(ctx context.Context, at domain.Coordinates, dates domain.DateRange) ([]domain.DailySample, error) {
	if c.circuit.State() == gobreaker.StateOpen {
		c.metrics.ArchiveRequests.WithLabelValues("circuit_open").Inc()
		c.logger.Warn("archive circuit open, skipping fetch", "lat", at.Lat, "lon", at.Lon)
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, gobreaker.ErrOpenState)
	}

	release, waited, err := c.limiter.Acquire(ctx)
	c.metrics.RateLimitWait.Observe(waited.Seconds())
	if err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		c.logger.Warn("archive fetch cancelled while rate limited", "lat", at.Lat, "lon", at.Lon, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	defer release()

	start := time.Now()
	body, err := c.get(ctx, c.requestURL(at, dates))
	c.metrics.ArchiveRequestDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.ArchiveRequests.WithLabelValues("circuit_open").Inc()
		c.logger.Warn("archive circuit rejected fetch", "lat", at.Lat, "lon", at.Lon, "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
	if err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		c.logger.Warn("archive fetch failed", "lat", at.Lat, "lon", at.Lon, "error", err)
		return []domain.DailySample{}, nil
	}

	samples, err := decodeDaily(body)
	if err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		c.logger.Warn("archive payload rejected", "lat", at.Lat, "lon", at.Lon, "error", err)
		return []domain.DailySample{}, nil
	}
	if len(samples) == 0 {
		c.metrics.ArchiveRequests.WithLabelValues("empty").Inc()
		return samples, nil
	}

	c.metrics.ArchiveRequests.WithLabelValues("success").Inc()
	c.logger.Debug("archive fetch complete", "lat", at.Lat, "lon", at.Lon, "days", len(samples))
	return samples, nil
}

func (c *Client) requestURL(at domain.Coordinates, dates domain.DateRange) string {
	params := url.Values{
		"latitude":           {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"longitude":          {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
		"start_date":         {dates.Start},
		"end_date":           {dates.End},
		"daily":              {"precipitation_sum"},
		"precipitation_unit": {c.unit},
		"timezone":           {c.timezone},
	}
	return c.baseURL + "?" + params.Encode()
}

// get performs the request through the circuit breaker. Transport failures
// and non-2xx statuses count against the breaker.
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("archive request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status %d: %s", errUpstreamStatus, resp.StatusCode, truncate(body, 200))
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// decodeDaily pairs the archive's parallel date and value arrays. Null values
// are read as zero.
func decodeDaily(body []byte) ([]domain.DailySample, error) {
	var payload ArchiveResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if payload.Daily == nil || payload.Daily.Time == nil || payload.Daily.PrecipitationSum == nil {
		return nil, fmt.Errorf("%w: missing daily series", errMalformed)
	}
	if len(payload.Daily.Time) != len(payload.Daily.PrecipitationSum) {
		return nil, fmt.Errorf("%w: %d dates but %d values", errMalformed,
			len(payload.Daily.Time), len(payload.Daily.PrecipitationSum))
	}

	samples := make([]domain.DailySample, len(payload.Daily.Time))
	for i, date := range payload.Daily.Time {
		var v float64
		if p := payload.Daily.PrecipitationSum[i]; p != nil {
			v = *p
		}
		samples[i] = domain.DailySample{Date: date, Value: v}
	}
	return samples, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// ArchiveResponse is the Open-Meteo archive payload for a daily query.
type ArchiveResponse struct {
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Timezone   string      `json:"timezone"`
	DailyUnits *DailyUnits `json:"daily_units,omitempty"`
	Daily      *DailyBlock `json:"daily"`
}

// DailyBlock holds the parallel date and value arrays.
type DailyBlock struct {
	Time             []string   `json:"time"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
}

type DailyUnits struct {
	Time             string `json:"time"`
	PrecipitationSum string `json:"precipitation_sum"`
}
