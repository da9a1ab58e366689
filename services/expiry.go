package services

import (
	"context"
	"log/slog"
	"time"
)

// ExpirySweeper periodically expires login requests that sat in
// pending/pending_otp past their window without admin action, so stale
// requests do not accumulate and waiting visitors get notified to stop.
type ExpirySweeper struct {
	login    *LoginService
	interval time.Duration
}

// NewExpirySweeper creates a sweeper over the given login service
func NewExpirySweeper(login *LoginService, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{login: login, interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
// Run in a goroutine from main.
func (s *ExpirySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Expiry sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.login.ExpireStale(ctx); err != nil {
				slog.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}
