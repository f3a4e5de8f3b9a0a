package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Preloader warms the region cache for a set of location keys.
type Preloader interface {
	Preload(ctx context.Context, keys []string) error
}

// Scheduler runs the cache preload as a one-shot background job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	preloader Preloader
	keys      []string
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
	err    error
}

// New creates a Scheduler. An empty keys slice preloads every map region.
// timeout bounds the whole preload run; zero means no bound.
func New(preloader Preloader, keys []string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		preloader: preloader,
		keys:      keys,
		timeout:   timeout,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start schedules the preload to run once, immediately, and returns without
// waiting for it. Cancelling ctx or calling Stop aborts a run in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	_, err := s.scheduler.Every(1).Day().LimitRunsTo(1).StartImmediately().Do(func() {
		s.run(ctx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule preload: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	s.once.Do(func() {
		defer close(s.done)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		s.logger.Info("scheduler: running preload job")
		if err := s.preloader.Preload(ctx, s.keys); err != nil {
			s.err = err
			s.logger.Error("scheduler: preload failed", "error", err)
			return
		}
		s.logger.Info("scheduler: completed preload job")
	})
}

// Done is closed when the preload run has finished.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Err returns the preload error once Done is closed.
func (s *Scheduler) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stop cancels a run in progress and stops the underlying scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.scheduler.Stop()
}
