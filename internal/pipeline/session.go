package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrSuperseded is returned by Select when a newer selection was issued
	// before this one completed.
	ErrSuperseded = errors.New("selection superseded by a newer request")
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the state of one dashboard: the active map metric and the last
// committed chart view. Each Select takes a fresh token; only the holder of
// the latest token may commit.
type Session struct {
	ID string

	explorer *Explorer

	mu         sync.Mutex
	metric     domain.MetricKind
	latest     uint64
	cancelPrev context.CancelFunc
	view       *ChartView
}

func newSession(id string, explorer *Explorer) *Session {
	return &Session{ID: id, explorer: explorer, metric: domain.MetricAmount}
}

// Select charts a location. Issuing a new Select cancels the wait of the
// previous one; a selection that is no longer the latest when its data
// arrives returns ErrSuperseded and leaves the committed view untouched.
// The cache fill behind a superseded selection still completes.
func (s *Session) Select(ctx context.Context, key string, granularity domain.Granularity) (ChartView, error) {
	s.mu.Lock()
	s.latest++
	token := s.latest
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancelPrev = cancel
	s.mu.Unlock()
	defer cancel()

	view, err := s.explorer.Chart(ctx, key, granularity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.latest {
		s.explorer.metrics.SelectionsSuperseded.Inc()
		return ChartView{}, ErrSuperseded
	}
	if err != nil {
		return ChartView{}, err
	}

	view.Token = token
	s.view = &view
	return view, nil
}

// View returns the last committed chart view.
func (s *Session) View() (ChartView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return ChartView{}, false
	}
	return *s.view, true
}

// Metric is the metric the session's map is styled by.
func (s *Session) Metric() domain.MetricKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metric
}

// SetMetric changes the map metric.
func (s *Session) SetMetric(kind domain.MetricKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metric = kind
}

// Choropleth styles the map regions by the session's metric.
func (s *Session) Choropleth() map[string]domain.RegionStyle {
	return s.explorer.Choropleth(s.Metric())
}

// Map renders the styled boundary geometry for the session's metric.
func (s *Session) Map() ([]byte, error) {
	return s.explorer.Map(s.Metric())
}

// Sessions tracks the open dashboard sessions of an Explorer.
type Sessions struct {
	explorer *Explorer

	mu   sync.RWMutex
	byID map[string]*Session
}

// NewSessions creates an empty session set.
func NewSessions(explorer *Explorer) *Sessions {
	return &Sessions{explorer: explorer, byID: make(map[string]*Session)}
}

// Open starts a new session with a random ID.
func (ss *Sessions) Open() *Session {
	s := newSession(uuid.NewString(), ss.explorer)

	ss.mu.Lock()
	ss.byID[s.ID] = s
	n := len(ss.byID)
	ss.mu.Unlock()

	ss.explorer.metrics.SessionsActive.Set(float64(n))
	return s
}

// Get returns an open session.
func (ss *Sessions) Get(id string) (*Session, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session, cancelling any selection still in flight.
func (ss *Sessions) Close(id string) error {
	ss.mu.Lock()
	s, ok := ss.byID[id]
	delete(ss.byID, id)
	n := len(ss.byID)
	ss.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.mu.Unlock()

	ss.explorer.metrics.SessionsActive.Set(float64(n))
	return nil
}
