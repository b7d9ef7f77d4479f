package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/acadia-sms/acadia/internal/academic"
	"github.com/acadia-sms/acadia/internal/app"
	"github.com/acadia-sms/acadia/internal/auth"
	"github.com/acadia-sms/acadia/internal/library"
	"github.com/acadia-sms/acadia/internal/maintenance"
	"github.com/acadia-sms/acadia/internal/moderation"
	"github.com/acadia-sms/acadia/internal/observability"
	"github.com/acadia-sms/acadia/internal/platform/cache"
	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/rules"
	"github.com/acadia-sms/acadia/internal/shared"
	"github.com/acadia-sms/acadia/internal/token"
	"github.com/acadia-sms/acadia/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec := token.NewCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, codec)
	authHandler := auth.NewHandler(logger, authService)
	authmw := authService.RequireAuth(logger)
	rbacmw := rbac.Middleware{Logger: logger}

	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool), auditLogger)
	gate := maintenance.NewGate(maintenanceService, codec, logger)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService, authmw, rbacmw)

	academicService := academic.NewService(academic.NewRepository(pool))
	academicHandler := academic.NewHandler(logger, academicService, authmw, rbacmw)

	libraryService := library.NewService(library.NewRepository(pool))
	libraryHandler := library.NewHandler(logger, libraryService, authmw, rbacmw)

	rulesService := rules.NewService(rules.NewRepository(pool))
	rulesHandler := rules.NewHandler(logger, rulesService, authmw, rbacmw)

	usersService := users.NewService(users.NewRepository(pool), auditLogger)
	usersHandler := users.NewHandler(logger, usersService, auditLogger, authmw, rbacmw)

	reportLimiter := moderation.NewReportLimiter(redisClient, cfg.ModerationMaxReports, cfg.ModerationReportCooldown)
	moderationService := moderation.NewService(moderation.NewRepository(pool), reportLimiter, auditLogger)
	moderationHandler := moderation.NewHandler(logger, moderationService, authmw, rbacmw)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Gate:               gate.Middleware,
		DB:                 pool,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		MaintenanceHandler: maintenanceHandler,
		AcademicHandler:    academicHandler,
		LibraryHandler:     libraryHandler,
		RulesHandler:       rulesHandler,
		UsersHandler:       usersHandler,
		ModerationHandler:  moderationHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
