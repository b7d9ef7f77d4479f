package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/acadia-sms/acadia/internal/app"
	"github.com/acadia-sms/acadia/internal/library"
	"github.com/acadia-sms/acadia/internal/maintenance"
	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
	"github.com/acadia-sms/acadia/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	libraryService := library.NewService(library.NewRepository(pool))
	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool), shared.NewAuditLogger(pool))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLibraryOverdueScan, Handler: jobs.NewOverdueScanHandler(logger, libraryService)},
			{Type: jobs.TaskMaintenanceWindow, Handler: jobs.NewMaintenanceWindowHandler(logger, maintenanceService)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewOverdueScanTask()},
			{Spec: "* * * * *", Task: jobs.NewMaintenanceWindowTask()},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}
