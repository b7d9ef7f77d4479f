package rules

import (
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

// Handler exposes the school rules endpoints.
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

// MountRoutes registers rule routes. Reading requires view_school_rules;
// writes require manage_rules.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authmw)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermViewSchoolRules))
		r.Get("/", h.handleList)
		r.Get("/{ruleID}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageRules))
		r.Post("/", h.handleCreate)
		r.Put("/{ruleID}", h.handleUpdate)
		r.Delete("/{ruleID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list rules", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rule, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rule)
}

type ruleRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category" validate:"max=100"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("title and content required: %w", shared.ErrValidation))
		return
	}
	rule, err := h.service.Create(r.Context(), CreateParams{Title: req.Title, Content: req.Content, Category: req.Category})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("rule created", slog.Int64("rule_id", rule.ID))
	httpx.JSON(w, http.StatusCreated, rule)
}

type ruleUpdateRequest struct {
	Title    string `json:"title" validate:"max=200"`
	Content  string `json:"content"`
	Category string `json:"category" validate:"max=100"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ruleUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("invalid rule: %w", shared.ErrValidation))
		return
	}
	rule, err := h.service.Update(r.Context(), id, CreateParams{Title: req.Title, Content: req.Content, Category: req.Category})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rule)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ruleID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ruleID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ruleID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid rule id: %w", shared.ErrValidation)
	}
	return id, nil
}
