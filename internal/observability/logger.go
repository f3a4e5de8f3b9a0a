package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// LogConfig is the subset of service configuration the logger needs.
type LogConfig interface {
	LogLevelName() string
	LogFormatName() string
}

// NewLogger builds the stdout service logger and installs it as the slog default.
func NewLogger(cfg LogConfig) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevelName(), cfg.LogFormatName())
}
