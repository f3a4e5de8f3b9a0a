package boundary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultSource is the public US county boundary file.
const DefaultSource = "https://raw.githubusercontent.com/datasets/geo-boundaries-us-counties/master/geojson/counties-50m.geojson"

// Loader reads boundary files from disk or over HTTP.
type Loader struct {
	client     *http.Client
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// NewLoader creates a loader whose downloads give up after two minutes.
func NewLoader(timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		client: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 2 * time.Minute
			return bo
		},
		logger: logger,
	}
}

// Load reads source, a file path or http(s) URL, and parses it.
func (l *Loader) Load(ctx context.Context, source, stateCode string) (*Collection, error) {
	var (
		data []byte
		err  error
	)
	if isURL(source) {
		data, err = l.download(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load boundaries from %s: %w", source, err)
	}

	c, err := Parse(data, stateCode)
	if err != nil {
		return nil, fmt.Errorf("parse boundaries from %s: %w", source, err)
	}
	l.logger.Info("boundaries loaded", "source", source, "state", stateCode, "regions", len(c.regions))
	return c, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// download retries transport failures, 429 and 5xx responses. Other statuses
// fail immediately.
func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch boundaries: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch boundaries: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch boundaries: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		l.logger.Warn("boundary download failed, retrying", "url", url, "error", err, "retry_in", wait)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(l.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}
