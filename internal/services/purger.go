package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiryPurger deletes reports whose TTL has passed. Stores without a native
// TTL (SQL) implement it; DynamoDB expires items itself and the memory store
// runs its own sweeper.
type ExpiryPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RunPurger calls p.PurgeExpired every interval until ctx is cancelled.
// Failures are logged; the next tick tries again.
func RunPurger(ctx context.Context, p ExpiryPurger, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := p.PurgeExpired(ctx, now)
			if err != nil {
				logger.Warn("purge expired reports failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired reports", zap.Int64("count", n))
			}
		}
	}
}
