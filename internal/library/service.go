package library

import (
	"context"
	"fmt"
	"time"

	"github.com/acadia-sms/acadia/internal/shared"
)

// Service applies catalog and loan business logic.
type Service struct {
	repo       Repository
	loanPeriod time.Duration
	now        func() time.Time
}

// NewService constructs a Service with the default loan period.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, loanPeriod: DefaultLoanPeriod, now: time.Now}
}

// ListBooks returns the catalog.
func (s *Service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.repo.ListBooks(ctx)
}

// GetBook returns one title.
func (s *Service) GetBook(ctx context.Context, id int64) (*Book, error) {
	return s.repo.FindBook(ctx, id)
}

// BookParams carries catalog input.
type BookParams struct {
	Title       string
	Author      string
	ISBN        string
	TotalCopies int
}

// AddBook catalogs a new title with all copies available.
func (s *Service) AddBook(ctx context.Context, params BookParams) (*Book, error) {
	if params.TotalCopies < 1 {
		return nil, fmt.Errorf("total_copies must be at least 1: %w", shared.ErrValidation)
	}
	book := &Book{
		Title:       params.Title,
		Author:      params.Author,
		ISBN:        params.ISBN,
		TotalCopies: params.TotalCopies,
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBook edits catalog fields. Availability follows total_copies changes
// so outstanding loans stay accounted for.
func (s *Service) UpdateBook(ctx context.Context, id int64, params BookParams) (*Book, error) {
	book, err := s.repo.FindBook(ctx, id)
	if err != nil {
		return nil, err
	}
	onLoan := book.TotalCopies - book.AvailableCopies
	if params.TotalCopies < onLoan {
		return nil, fmt.Errorf("%d copies are on loan: %w", onLoan, shared.ErrValidation)
	}
	book.Title = params.Title
	book.Author = params.Author
	book.ISBN = params.ISBN
	book.TotalCopies = params.TotalCopies
	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	if delta := params.TotalCopies - onLoan - book.AvailableCopies; delta != 0 {
		if err := s.repo.AdjustAvailability(ctx, book.ID, delta); err != nil {
			return nil, err
		}
		book.AvailableCopies += delta
	}
	return book, nil
}

// RemoveBook deletes a title from the catalog.
func (s *Service) RemoveBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}

// RequestLoan opens a loan for the borrower. Borrowers holding an overdue
// loan are refused; the availability decrement rides the request transaction,
// so a later handler failure rolls it back with everything else.
func (s *Service) RequestLoan(ctx context.Context, borrowerID, bookID int64) (*Loan, error) {
	overdue, err := s.repo.HasOverdueLoans(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	if overdue {
		return nil, fmt.Errorf("overdue loans must be returned first: %w", shared.ErrForbidden)
	}
	if _, err := s.repo.FindBook(ctx, bookID); err != nil {
		return nil, err
	}
	if err := s.repo.AdjustAvailability(ctx, bookID, -1); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	loan := &Loan{
		BookID:     bookID,
		BorrowerID: borrowerID,
		Status:     LoanBorrowed,
		BorrowedAt: now,
		DueAt:      now.Add(s.loanPeriod),
	}
	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// OwnLoans lists the borrower's loan history.
func (s *Service) OwnLoans(ctx context.Context, borrowerID int64) ([]Loan, error) {
	return s.repo.ListLoansByBorrower(ctx, borrowerID)
}

// ReturnLoan closes a loan and restores the copy to the shelf.
func (s *Service) ReturnLoan(ctx context.Context, loanID int64) (*Loan, error) {
	loan, err := s.repo.FindLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == LoanReturned {
		return nil, fmt.Errorf("loan already returned: %w", shared.ErrValidation)
	}
	now := s.now().UTC()
	if err := s.repo.MarkReturned(ctx, loanID, now); err != nil {
		return nil, err
	}
	if err := s.repo.AdjustAvailability(ctx, loan.BookID, 1); err != nil {
		return nil, err
	}
	loan.Status = LoanReturned
	loan.ReturnedAt = &now
	return loan, nil
}

// SweepOverdue marks past-due borrowed loans overdue. Called from the worker.
func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx, s.now().UTC())
}
