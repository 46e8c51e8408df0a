package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/store"
)

// HousekeepingService periodically removes refresh token records that can no
// longer be used: revoked ones and ones older than the refresh window.
type HousekeepingService struct {
	Revocations store.Revocations
	Logger      *slog.Logger
	Interval    time.Duration
	MaxAge      time.Duration // normally the refresh token lifetime
	Now         func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. If interval is 0 or
// negative it defaults to 1 hour.
func NewHousekeepingService(revs store.Revocations, logger *slog.Logger, interval, maxAge time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Revocations: revs,
		Logger:      logger,
		Interval:    interval,
		MaxAge:      maxAge,
		Now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker. It is non-blocking; call Stop to
// shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down and waits for an in-progress sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes stale records once and returns how many were removed.
func (s *HousekeepingService) Sweep(ctx context.Context) int64 {
	cutoff := s.Now().Add(-s.MaxAge)

	n, err := s.Revocations.DeleteStale(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete stale refresh token records", "error", err)
		return n
	}

	s.Logger.Info("housekeeping sweep completed", "deleted", n, "cutoff", cutoff)
	return n
}
