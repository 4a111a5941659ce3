package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CodePurger deletes reset codes that expired before cutoff.
type CodePurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeCodes removes codes that expired more than purgeAfter ago.
func PurgeCodes(ctx context.Context, p CodePurger, purgeAfter time.Duration) {
	n, err := p.PurgeExpired(ctx, time.Now().UTC().Add(-purgeAfter))
	if err != nil {
		zap.L().Error("Failed to purge expired reset codes", zap.Error(err))
		return
	}

	if n > 0 {
		zap.L().Debug("Purged expired reset codes", zap.Int64("count", n))
	}
}

// CodeCleanup schedules PurgeCodes on schedule and starts the scheduler.
// The caller stops it with Stop.
func CodeCleanup(schedule string, purgeAfter time.Duration, p CodePurger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		PurgeCodes(ctx, p, purgeAfter)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reset code cleanup, %w", err)
	}

	c.Start()
	zap.L().Debug("Reset code cleanup attached", zap.String("schedule", schedule), zap.Duration("purge_after", purgeAfter))

	return c, nil
}
