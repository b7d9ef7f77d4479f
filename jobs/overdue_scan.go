package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/acadia-sms/acadia/internal/library"
)

// NewOverdueScanHandler returns the handler that flips past-due borrowed
// loans to overdue.
func NewOverdueScanHandler(logger *slog.Logger, svc *library.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		marked, err := svc.SweepOverdue(ctx)
		if err != nil {
			logger.Error("overdue scan failed", slog.Any("error", err))
			return err
		}
		if marked > 0 {
			logger.Info("overdue scan", slog.Int64("loans_marked", marked))
		}
		return nil
	}
}
