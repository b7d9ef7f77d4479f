package users

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/acadia-sms/acadia/internal/platform/httpx"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// AuditReader lists audit entries for the admin endpoint.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]shared.AuditLog, error)
}

// Handler exposes the administrative endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	audit     AuditReader
	authmw    func(http.Handler) http.Handler
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, audit AuditReader, authmw func(http.Handler) http.Handler, rbacmw rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, audit: audit, authmw: authmw, rbac: rbacmw, validator: validator.New()}
}

// MountRoutes registers the admin routes, each behind its own permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authmw)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageUsers))
		r.Get("/users", h.handleList)
		r.Get("/users/{userID}", h.handleGet)
		r.Put("/users/{userID}", h.handleUpdate)
		r.Delete("/users/{userID}", h.handleDeactivate)
	})
	r.With(h.rbac.RequireAll(rbac.PermAssignRoles)).Put("/users/{userID}/role", h.handleAssignRole)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageStudents))
		r.Get("/students", h.handleStudents)
		r.Post("/students", h.handleEnroll)
	})
	r.With(h.rbac.RequireAll(rbac.PermViewAnalytics)).Get("/stats", h.handleStats)
	r.With(h.rbac.RequireAll(rbac.PermViewAuditLogs)).Get("/audit", h.handleAudit)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

type updateRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Name     string `json:"name" validate:"max=200"`
	IsActive *bool  `json:"is_active"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("invalid account: %w", shared.ErrValidation))
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	account, err := h.service.Update(r.Context(), principal.ID, id, UpdateParams{
		Email:    req.Email,
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=student librarian moderator admin"`
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("role required: %w", shared.ErrValidation))
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	account, err := h.service.AssignRole(r.Context(), principal.ID, id, req.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("role assigned", slog.Int64("user_id", id), slog.String("role", account.Role))
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.service.Deactivate(r.Context(), principal.ID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type enrollRequest struct {
	UserID     int64  `json:"user_id" validate:"required,min=1"`
	GradeLevel int    `json:"grade_level" validate:"required,min=1,max=13"`
	ClassName  string `json:"class_name" validate:"required,max=50"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("user_id, grade_level and class_name required: %w", shared.ErrValidation))
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	profile, err := h.service.EnrollStudent(r.Context(), principal.ID, EnrollParams{
		UserID:     req.UserID,
		GradeLevel: req.GradeLevel,
		ClassName:  req.ClassName,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("student enrolled", slog.Int64("user_id", profile.UserID), slog.String("class", profile.ClassName))
	httpx.JSON(w, http.StatusCreated, profile)
}

func (h *Handler) handleStudents(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.Students(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Overview(r.Context())
	if err != nil {
		h.logger.Error("system stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.audit.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list audit logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id: %w", shared.ErrValidation)
	}
	return id, nil
}
