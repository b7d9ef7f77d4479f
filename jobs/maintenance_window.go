package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/acadia-sms/acadia/internal/maintenance"
)

// NewMaintenanceWindowHandler returns the handler that reconciles the
// maintenance flag with its scheduled start/end window.
func NewMaintenanceWindowHandler(logger *slog.Logger, svc *maintenance.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		cfg, changed, err := svc.ApplyWindow(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("maintenance window reconcile failed", slog.Any("error", err))
			return err
		}
		if changed {
			logger.Info("maintenance window applied", slog.Bool("is_enabled", cfg.IsEnabled))
		}
		return nil
	}
}
