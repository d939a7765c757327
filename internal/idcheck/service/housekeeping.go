package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/store"
)

// HousekeepingService periodically clears expired access tokens and aged-out
// authorization code rows. Codes are kept well past their exchange lifetime
// so replays of old codes still resolve to a row and trigger revocation;
// retention bounds how long that window stays open.
type HousekeepingService struct {
	Store         store.Store
	Interval      time.Duration
	CodeRetention time.Duration
	Logger        *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(st store.Store, interval, codeRetention time.Duration, logger *slog.Logger) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if codeRetention <= 0 {
		codeRetention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HousekeepingService{
		Store:         st,
		Interval:      interval,
		CodeRetention: codeRetention,
		Logger:        logger,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start launches the background cleanup loop. An initial sweep runs
// immediately so restarts do not extend the retention window.
func (s *HousekeepingService) Start() {
	go s.run()
}

// Stop signals the loop to exit and waits for the in-flight sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	s.cleanup()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now()

	if err := s.Store.AccessTokens().DeleteExpiredAccessTokens(ctx, now); err != nil {
		s.Logger.Error("housekeeping: deleting expired access tokens", "error", err)
	}

	cutoff := now.Add(-s.CodeRetention)
	if err := s.Store.AuthorizationCodes().DeleteAuthorizationCodesCreatedBefore(ctx, cutoff); err != nil {
		s.Logger.Error("housekeeping: deleting aged authorization codes", "error", err)
	}
}
