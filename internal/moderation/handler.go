package moderation

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/acadia-sms/acadia/internal/platform/httpx"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Handler exposes the ticket, report and ban endpoints.
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

// MountRoutes registers moderation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authmw)

	r.With(h.rbac.RequireAll(rbac.PermCreateTickets)).Post("/tickets", h.handleOpenTicket)
	r.With(h.rbac.RequireAll(rbac.PermViewOwnTickets)).Get("/tickets/me", h.handleOwnTickets)
	r.Get("/tickets/{ticketID}", h.handleThread)
	r.With(h.rbac.RequireAll(rbac.PermCreateTickets)).Post("/tickets/{ticketID}/messages", h.handlePostMessage)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermModerateTickets))
		r.Get("/tickets", h.handleAllTickets)
		r.Put("/tickets/{ticketID}/status", h.handleStatus)
		r.Put("/tickets/{ticketID}/assign", h.handleAssign)
	})

	r.With(h.rbac.RequireAll(rbac.PermCreateTickets)).Post("/reports", h.handleFileReport)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageReports))
		r.Get("/reports", h.handleReports)
		r.Put("/reports/{reportID}/review", h.handleReviewReport)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageBans))
		r.Get("/bans", h.handleBans)
		r.Post("/bans", h.handleIssueBan)
		r.Delete("/bans/{banID}", h.handleLiftBan)
	})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) *rbac.Principal {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
	}
	return principal
}

type ticketRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=5000"`
}

func (h *Handler) handleOpenTicket(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	var req ticketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("subject and body required: %w", shared.ErrValidation))
		return
	}
	ticket, err := h.service.OpenTicket(r.Context(), principal.ID, req.Subject, req.Body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("ticket opened", slog.Int64("ticket_id", ticket.ID), slog.Int64("author_id", principal.ID))
	httpx.JSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleOwnTickets(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	tickets, err := h.service.OwnTickets(r.Context(), principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleAllTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.AllTickets(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleThread(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	id, err := pathID(r, "ticketID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, msgs, err := h.service.TicketThread(r.Context(), principal, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ticket": ticket, "messages": msgs})
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	id, err := pathID(r, "ticketID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("valid status required: %w", shared.ErrValidation))
		return
	}
	ticket, err := h.service.SetTicketStatus(r.Context(), principal.ID, id, req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

type assignRequest struct {
	AssigneeID int64 `json:"assignee_id" validate:"required,min=1"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	id, err := pathID(r, "ticketID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("assignee_id required: %w", shared.ErrValidation))
		return
	}
	ticket, err := h.service.AssignTicket(r.Context(), principal.ID, id, req.AssigneeID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("ticket assigned", slog.Int64("ticket_id", id), slog.Int64("assignee_id", req.AssigneeID))
	httpx.JSON(w, http.StatusOK, ticket)
}

type messageRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	id, err := pathID(r, "ticketID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req messageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("body required: %w", shared.ErrValidation))
		return
	}
	msg, err := h.service.PostMessage(r.Context(), principal, id, req.Body)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, msg)
}

type reportRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=user ticket message"`
	TargetID   int64  `json:"target_id" validate:"required,min=1"`
	Reason     string `json:"reason" validate:"required,max=1000"`
}

func (h *Handler) handleFileReport(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	var req reportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("target_type, target_id and reason required: %w", shared.ErrValidation))
		return
	}
	report, err := h.service.FileReport(r.Context(), principal.ID, req.TargetType, req.TargetID, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("report filed",
		slog.Int64("report_id", report.ID),
		slog.String("target_type", report.TargetType),
		slog.Int64("target_id", report.TargetID))
	httpx.JSON(w, http.StatusCreated, report)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.Reports(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reports)
}

type reviewRequest struct {
	Status string `json:"status" validate:"required,oneof=reviewed dismissed"`
}

func (h *Handler) handleReviewReport(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	id, err := pathID(r, "reportID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("status must be reviewed or dismissed: %w", shared.ErrValidation))
		return
	}
	if err := h.service.ReviewReport(r.Context(), principal.ID, id, req.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.service.Bans(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bans)
}

type banRequest struct {
	UserID    int64      `json:"user_id" validate:"required,min=1"`
	Reason    string     `json:"reason" validate:"required,max=1000"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *Handler) handleIssueBan(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	var req banRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("user_id and reason required: %w", shared.ErrValidation))
		return
	}
	ban, err := h.service.IssueBan(r.Context(), principal.ID, req.UserID, req.Reason, req.ExpiresAt)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("ban issued", slog.Int64("ban_id", ban.ID), slog.Int64("user_id", ban.UserID))
	httpx.JSON(w, http.StatusCreated, ban)
}

func (h *Handler) handleLiftBan(w http.ResponseWriter, r *http.Request) {
	principal := h.principal(w, r)
	if principal == nil {
		return
	}
	id, err := pathID(r, "banID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.LiftBan(r.Context(), principal.ID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", key, shared.ErrValidation)
	}
	return id, nil
}
