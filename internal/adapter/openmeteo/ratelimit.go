package openmeteo

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter serializes upstream calls and keeps at least interval between the
// end of one call and the start of the next.
type Limiter struct {
	clock    clockwork.Clock
	interval time.Duration
	slot     chan struct{}
	lastEnd  time.Time // guarded by holding the slot
}

// NewLimiter creates a limiter. A nil clock uses real time.
func NewLimiter(interval time.Duration, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Limiter{
		clock:    clock,
		interval: interval,
		slot:     make(chan struct{}, 1),
	}
	l.slot <- struct{}{}
	return l
}

// Acquire blocks until the caller may issue the next upstream call. The
// returned release must be called once the call has finished; it stamps the
// end time used to space the following call. waited reports how long the
// caller was held back.
func (l *Limiter) Acquire(ctx context.Context) (release func(), waited time.Duration, err error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	start := l.clock.Now()

	select {
	case <-l.slot:
	case <-ctx.Done():
		return nil, l.clock.Since(start), ctx.Err()
	}

	if !l.lastEnd.IsZero() {
		if wait := l.lastEnd.Add(l.interval).Sub(l.clock.Now()); wait > 0 {
			timer := l.clock.NewTimer(wait)
			select {
			case <-timer.Chan():
			case <-ctx.Done():
				timer.Stop()
				l.slot <- struct{}{}
				return nil, l.clock.Since(start), ctx.Err()
			}
		}
	}

	var released bool
	release = func() {
		if released {
			return
		}
		released = true
		l.lastEnd = l.clock.Now()
		l.slot <- struct{}{}
	}
	return release, l.clock.Since(start), nil
}
