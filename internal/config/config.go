package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // ARCHIVE_TIMEZONE must resolve in minimal containers

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	defaultArchiveURL     = "https://archive-api.open-meteo.com/v1/archive"
	defaultBoundarySource = "https://raw.githubusercontent.com/datasets/geo-boundaries-us-counties/master/geojson/counties-50m.geojson"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Precipitation archive.
	ArchiveBaseURL     string
	ArchiveTimeout     time.Duration
	ArchiveMinInterval time.Duration
	ArchiveStartDate   string
	ArchiveEndDate     string // empty means yesterday
	ArchiveTimezone    string
	PrecipitationUnit  string

	// Map geometry.
	BoundarySource    string
	BoundaryStateCode string

	// Unknown location keys resolve to the statewide entry instead of 404.
	UnknownLocationFallback bool
	// Readiness waits for the first cached region only when preloading.
	PreloadEnabled bool

	// Region publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// LogLevelName implements observability.LogConfig.
func (c *Config) LogLevelName() string { return c.LogLevel }

// LogFormatName implements observability.LogConfig.
func (c *Config) LogFormatName() string { return c.LogFormat }

// PublishingEnabled reports whether region entries go to Kafka.
func (c *Config) PublishingEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	archiveTimeout, err := parsePositiveDuration("ARCHIVE_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	minInterval, err := parsePositiveDuration("ARCHIVE_MIN_INTERVAL", "1.1s")
	if err != nil {
		return nil, err
	}
	fallback, err := parseBool("UNKNOWN_LOCATION_FALLBACK", false)
	if err != nil {
		return nil, err
	}
	preload, err := parseBool("PRELOAD_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ArchiveBaseURL:     sharedcfg.EnvOrDefault("ARCHIVE_BASE_URL", defaultArchiveURL),
		ArchiveTimeout:     archiveTimeout,
		ArchiveMinInterval: minInterval,
		ArchiveStartDate:   sharedcfg.EnvOrDefault("ARCHIVE_START_DATE", "1940-01-01"),
		ArchiveEndDate:     sharedcfg.EnvOrDefault("ARCHIVE_END_DATE", ""),
		ArchiveTimezone:    sharedcfg.EnvOrDefault("ARCHIVE_TIMEZONE", "America/Chicago"),
		PrecipitationUnit:  sharedcfg.EnvOrDefault("PRECIPITATION_UNIT", "inch"),

		BoundarySource:    sharedcfg.EnvOrDefault("BOUNDARY_SOURCE", defaultBoundarySource),
		BoundaryStateCode: sharedcfg.EnvOrDefault("BOUNDARY_STATE_CODE", "46"),

		UnknownLocationFallback: fallback,
		PreloadEnabled:          preload,

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "rainfall-region-metrics"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PrecipitationUnit != "inch" && c.PrecipitationUnit != "mm" {
		return errors.New("invalid PRECIPITATION_UNIT: must be inch or mm")
	}
	if _, err := time.Parse(time.DateOnly, c.ArchiveStartDate); err != nil {
		return fmt.Errorf("invalid ARCHIVE_START_DATE: %w", err)
	}
	if c.ArchiveEndDate != "" {
		end, err := time.Parse(time.DateOnly, c.ArchiveEndDate)
		if err != nil {
			return fmt.Errorf("invalid ARCHIVE_END_DATE: %w", err)
		}
		start, _ := time.Parse(time.DateOnly, c.ArchiveStartDate)
		if end.Before(start) {
			return errors.New("invalid ARCHIVE_END_DATE: before ARCHIVE_START_DATE")
		}
	}
	if _, err := time.LoadLocation(c.ArchiveTimezone); err != nil {
		return fmt.Errorf("invalid ARCHIVE_TIMEZONE: %w", err)
	}
	if c.BoundarySource == "" {
		return errors.New("BOUNDARY_SOURCE is required")
	}
	if c.PublishingEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}
