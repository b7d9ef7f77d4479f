package academic

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

// Handler exposes the grade endpoints.
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

// MountRoutes registers grade routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authmw)
	r.With(h.rbac.RequireAll(rbac.PermViewOwnGrades)).Get("/grades/me", h.handleOwnGrades)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageGrades))
		r.Get("/grades/{studentID}", h.handleStudentGrades)
		r.Post("/grades/{studentID}", h.handleRecord)
	})
}

func (h *Handler) handleOwnGrades(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	grades, err := h.service.OwnGrades(r.Context(), principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grades)
}

func (h *Handler) handleStudentGrades(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grades, err := h.service.GradesFor(r.Context(), studentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grades)
}

type recordRequest struct {
	Subject string  `json:"subject" validate:"required,max=100"`
	Score   float64 `json:"score" validate:"min=0,max=100"`
	Term    string  `json:"term" validate:"required,max=50"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	studentID, err := studentID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("subject, term and a score in [0,100] required: %w", shared.ErrValidation))
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	grade, err := h.service.Record(r.Context(), RecordParams{
		StudentID:  studentID,
		Subject:    req.Subject,
		Score:      req.Score,
		Term:       req.Term,
		RecordedBy: principal.ID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("grade recorded",
		slog.Int64("student_id", studentID),
		slog.String("subject", grade.Subject))
	httpx.JSON(w, http.StatusCreated, grade)
}

func studentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid student id: %w", shared.ErrValidation)
	}
	return id, nil
}
