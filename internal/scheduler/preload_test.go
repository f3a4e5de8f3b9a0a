package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePreloader struct {
	mu    sync.Mutex
	calls [][]string
	err   error
	block bool
}

func (f *fakePreloader) Preload(ctx context.Context, keys []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, keys)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakePreloader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, s *Scheduler) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("preload did not finish")
	}
}

func TestScheduler_RunsPreloadOnce(t *testing.T) {
	p := &fakePreloader{}
	s := New(p, []string{"Minnehaha", "Brown"}, time.Minute, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	waitDone(t, s)
	assert.NoError(t, s.Err())

	// Give the scheduler a moment to prove it does not run the job again.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, p.callCount())
	assert.Equal(t, []string{"Minnehaha", "Brown"}, p.calls[0])
}

func TestScheduler_ReportsPreloadError(t *testing.T) {
	p := &fakePreloader{err: errors.New("archive down")}
	s := New(p, nil, 0, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	waitDone(t, s)
	assert.EqualError(t, s.Err(), "archive down")
}

func TestScheduler_StopCancelsRun(t *testing.T) {
	p := &fakePreloader{block: true}
	s := New(p, nil, 0, discardLogger())
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return p.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, s.Err(), "no error before the run finishes")

	s.Stop()
	waitDone(t, s)
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestScheduler_TimeoutBoundsRun(t *testing.T) {
	p := &fakePreloader{block: true}
	s := New(p, nil, 20*time.Millisecond, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	waitDone(t, s)
	assert.ErrorIs(t, s.Err(), context.DeadlineExceeded)
}
