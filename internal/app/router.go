package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/acadia-sms/acadia/internal/academic"
	"github.com/acadia-sms/acadia/internal/auth"
	"github.com/acadia-sms/acadia/internal/library"
	"github.com/acadia-sms/acadia/internal/maintenance"
	"github.com/acadia-sms/acadia/internal/moderation"
	"github.com/acadia-sms/acadia/internal/observability"
	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/rules"
	"github.com/acadia-sms/acadia/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Gate    func(http.Handler) http.Handler
	DB      db.Beginner
	Metrics *observability.Metrics

	AuthHandler        *auth.Handler
	MaintenanceHandler *maintenance.Handler
	AcademicHandler    *academic.Handler
	LibraryHandler     *library.Handler
	RulesHandler       *rules.Handler
	UsersHandler       *users.Handler
	ModerationHandler  *moderation.Handler
}

// NewRouter constructs the chi.Router with Acadia defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Gate:    params.Gate,
		DB:      params.DB,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.MaintenanceHandler != nil {
		params.MaintenanceHandler.MountRoutes(r)
	}
	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.AcademicHandler != nil {
		r.Route("/academic", params.AcademicHandler.MountRoutes)
	}
	if params.LibraryHandler != nil {
		r.Route("/library", params.LibraryHandler.MountRoutes)
	}
	if params.RulesHandler != nil {
		r.Route("/rules", params.RulesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/admin", params.UsersHandler.MountRoutes)
	}
	if params.ModerationHandler != nil {
		r.Route("/moderation", params.ModerationHandler.MountRoutes)
	}

	return r
}
