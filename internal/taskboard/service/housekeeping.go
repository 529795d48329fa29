package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

// HousekeepingService periodically clears refresh tokens that are past
// their expiry so stale fingerprints do not linger on user rows.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass and returns the number of refresh tokens cleared.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	n, err := s.Store.Users().ClearExpiredRefreshTokens(ctx, s.Now())
	if err != nil {
		s.Logger.Error("failed to clear expired refresh tokens", "error", err)
		return 0
	}
	s.Logger.Debug("housekeeping cleanup completed", "refresh_tokens_cleared", n)
	return n
}
