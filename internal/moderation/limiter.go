package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acadia-sms/acadia/internal/shared"
)

const reportWindow = 24 * time.Hour

// ReportLimiter throttles report submissions per user in redis: a cooldown
// between consecutive reports and a rolling cap over 24 hours.
type ReportLimiter struct {
	client     *redis.Client
	maxReports int
	cooldown   time.Duration
}

// NewReportLimiter constructs a limiter with the configured limits.
func NewReportLimiter(client *redis.Client, maxReports int, cooldown time.Duration) *ReportLimiter {
	return &ReportLimiter{client: client, maxReports: maxReports, cooldown: cooldown}
}

// Allow consumes one report slot for the user or returns ErrRateLimited.
func (l *ReportLimiter) Allow(ctx context.Context, userID int64) error {
	if l == nil || l.client == nil {
		return nil
	}

	if l.cooldown > 0 {
		cooldownKey := fmt.Sprintf("moderation:reports:cooldown:%d", userID)
		ok, err := l.client.SetNX(ctx, cooldownKey, 1, l.cooldown).Result()
		if err != nil {
			return fmt.Errorf("report cooldown: %w", err)
		}
		if !ok {
			return fmt.Errorf("report cooldown active: %w", shared.ErrRateLimited)
		}
	}

	countKey := fmt.Sprintf("moderation:reports:count:%d", userID)
	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return fmt.Errorf("report counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, countKey, reportWindow).Err(); err != nil {
			return fmt.Errorf("report counter expiry: %w", err)
		}
	}
	if l.maxReports > 0 && count > int64(l.maxReports) {
		return fmt.Errorf("report limit reached: %w", shared.ErrRateLimited)
	}
	return nil
}
