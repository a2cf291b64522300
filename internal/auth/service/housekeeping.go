package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
)

// DefaultHousekeepingInterval is used when no interval is configured.
const DefaultHousekeepingInterval = time.Hour

// HousekeepingService periodically drops revoked-set entries whose tokens
// have expired, so logouts don't grow the set without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now is the clock used to decide what has expired.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
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

// Cleanup performs one pruning pass and returns the number of entries removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int {
	deleted, err := s.Store.Revocations().DeleteExpired(ctx, s.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
		return 0
	}

	s.Logger.Info("housekeeping cleanup completed", "revocations_deleted", deleted)
	return deleted
}
