package maintenance

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/acadia-sms/acadia/internal/platform/httpx"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Handler exposes the maintenance status and config endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authmw    func(http.Handler) http.Handler
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, authmw func(http.Handler) http.Handler, rbacmw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authmw: authmw, rbac: rbacmw, validator: validator.New()}
}

// MountRoutes registers routes. Status is public; config updates require the
// system_config permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/maintenance/status", h.handleStatus)
	r.Group(func(r chi.Router) {
		r.Use(h.authmw)
		r.Use(h.rbac.RequireAll(rbac.PermSystemConfig))
		r.Get("/maintenance/config", h.handleGetConfig)
		r.Put("/maintenance/config", h.handleUpdate)
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("maintenance status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("maintenance config read", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

type updateRequest struct {
	IsEnabled        bool       `json:"is_enabled"`
	Message          string     `json:"message" validate:"max=500"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	AllowAdminAccess *bool      `json:"allow_admin_access"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("invalid config: %w", shared.ErrValidation))
		return
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		httpx.RespondError(w, fmt.Errorf("end_time must be after start_time: %w", shared.ErrValidation))
		return
	}
	allowAdmin := true
	if req.AllowAdminAccess != nil {
		allowAdmin = *req.AllowAdminAccess
	}
	principal := rbac.PrincipalFromContext(r.Context())
	var actorID int64
	if principal != nil {
		actorID = principal.ID
	}
	cfg, err := h.service.Update(r.Context(), actorID, UpdateParams{
		IsEnabled:        req.IsEnabled,
		Message:          req.Message,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		AllowAdminAccess: allowAdmin,
	})
	if err != nil {
		h.logger.Error("maintenance update", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("maintenance config updated",
		slog.Bool("is_enabled", cfg.IsEnabled),
		slog.Bool("allow_admin_access", cfg.AllowAdminAccess))
	httpx.JSON(w, http.StatusOK, cfg)
}
