package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/logging"
)

// Sweeper periodically reclaims abandoned upload sessions.
type Sweeper struct {
	uploads  *UploadManager
	interval time.Duration
	logger   logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSweeper(uploads *UploadManager, interval time.Duration, logger logging.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		uploads:  uploads,
		interval: interval,
		logger:   logger.With("module", "sweeper"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker.
func (s *Sweeper) Start() {
	s.logger.Info(context.Background(), "starting session sweeper", "interval", s.interval.String())
	go s.worker()
}

// Stop signals the worker and waits for it or for ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.doneCh:
		s.logger.Info(ctx, "session sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "session sweeper shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs one sweep immediately.
func (s *Sweeper) RunNow(ctx context.Context) (int, error) {
	return s.uploads.Sweep(ctx)
}

func (s *Sweeper) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			n, err := s.uploads.Sweep(ctx)
			cancel()

			if err != nil {
				s.logger.Error(ctx, "session sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info(ctx, "abandoned sessions reclaimed", "count", n)
			}

		case <-s.stopCh:
			return
		}
	}
}
