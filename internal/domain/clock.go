package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// ArchiveEpoch is the first date the archive serves.
const ArchiveEpoch = "1940-01-01"

// DefaultDateRange spans the archive epoch through yesterday. The archive
// lags real time, so today's total is never complete.
func DefaultDateRange() DateRange {
	yesterday := clock.Now().UTC().AddDate(0, 0, -1)
	return DateRange{Start: ArchiveEpoch, End: yesterday.Format(time.DateOnly)}
}
