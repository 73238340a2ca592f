package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/repository"
)

// sweepTimeout bounds a single sweep against the token store
const sweepTimeout = time.Minute

// Sweeper periodically deletes expired refresh-token rows. It is advisory
// housekeeping: revocation and expiry checks never depend on rows having
// been swept, the sweep only bounds storage growth.
type Sweeper struct {
	tokenRepo repository.RefreshTokenRepository
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a new token sweeper instance
func NewSweeper(tokenRepo repository.RefreshTokenRepository, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		tokenRepo: tokenRepo,
		interval:  interval,
		logger:    logger,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Sweeps run inline in the loop, so a slow sweep delays the next
// tick instead of overlapping with it.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("🧹 [Sweeper] Token sweeper started", "interval", s.interval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("🛑 [Sweeper] Token sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	count, err := s.tokenRepo.DeleteExpiredTokens(ctx)
	if err != nil {
		s.logger.Error("❌ [Sweeper] Failed to delete expired tokens", "error", err)
		return
	}

	if count > 0 {
		s.logger.Info("🧹 [Sweeper] Deleted expired refresh tokens", "count", count)
	} else {
		s.logger.Debug("🧹 [Sweeper] No expired refresh tokens")
	}
}
