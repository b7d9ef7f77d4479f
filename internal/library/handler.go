package library

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

// Handler exposes the catalog and loan endpoints.
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

// MountRoutes registers library routes. Any authenticated user can browse the
// catalog; catalog writes need manage_books and returns need process_loans.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.authmw)

	r.Get("/books", h.handleListBooks)
	r.Get("/books/{bookID}", h.handleGetBook)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermManageBooks))
		r.Post("/books", h.handleAddBook)
		r.Put("/books/{bookID}", h.handleUpdateBook)
		r.Delete("/books/{bookID}", h.handleDeleteBook)
	})

	r.With(h.rbac.RequireAll(rbac.PermRequestBookLoan)).Post("/loans", h.handleRequestLoan)
	r.Get("/loans/me", h.handleOwnLoans)
	r.With(h.rbac.RequireAll(rbac.PermProcessLoans)).Post("/loans/{loanID}/return", h.handleReturnLoan)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.logger.Error("list books", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

type bookRequest struct {
	Title       string `json:"title" validate:"required,max=300"`
	Author      string `json:"author" validate:"required,max=200"`
	ISBN        string `json:"isbn" validate:"required,min=10,max=17"`
	TotalCopies int    `json:"total_copies" validate:"required,min=1"`
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("title, author, isbn and total_copies required: %w", shared.ErrValidation))
		return
	}
	book, err := h.service.AddBook(r.Context(), BookParams{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("book cataloged", slog.Int64("book_id", book.ID), slog.String("isbn", book.ISBN))
	httpx.JSON(w, http.StatusCreated, book)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("invalid book: %w", shared.ErrValidation))
		return
	}
	book, err := h.service.UpdateBook(r.Context(), id, BookParams{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "bookID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loanRequest struct {
	BookID int64 `json:"book_id" validate:"required,min=1"`
}

func (h *Handler) handleRequestLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("bad payload: %w", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("book_id required: %w", shared.ErrValidation))
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	loan, err := h.service.RequestLoan(r.Context(), principal.ID, req.BookID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("loan opened",
		slog.Int64("loan_id", loan.ID),
		slog.Int64("book_id", loan.BookID),
		slog.Int64("borrower_id", loan.BorrowerID))
	httpx.JSON(w, http.StatusCreated, loan)
}

func (h *Handler) handleOwnLoans(w http.ResponseWriter, r *http.Request) {
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	loans, err := h.service.OwnLoans(r.Context(), principal.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loans)
}

func (h *Handler) handleReturnLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "loanID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	loan, err := h.service.ReturnLoan(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("loan returned", slog.Int64("loan_id", loan.ID))
	httpx.JSON(w, http.StatusOK, loan)
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", key, shared.ErrValidation)
	}
	return id, nil
}
