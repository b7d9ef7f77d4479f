package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository abstracts book and loan persistence.
type Repository interface {
	ListBooks(ctx context.Context) ([]Book, error)
	FindBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, book *Book) error
	UpdateBook(ctx context.Context, book *Book) error
	DeleteBook(ctx context.Context, id int64) error
	AdjustAvailability(ctx context.Context, bookID int64, delta int) error

	CreateLoan(ctx context.Context, loan *Loan) error
	FindLoan(ctx context.Context, id int64) (*Loan, error)
	ListLoansByBorrower(ctx context.Context, borrowerID int64) ([]Loan, error)
	HasOverdueLoans(ctx context.Context, borrowerID int64) (bool, error)
	MarkReturned(ctx context.Context, loanID int64, at time.Time) error
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository is the Postgres implementation of Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const bookColumns = `id, title, author, isbn, total_copies, available_copies, created_at, updated_at`

func (r *PGRepository) ListBooks(ctx context.Context) ([]Book, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) FindBook(ctx context.Context, id int64) (*Book, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var b Book
	err := scanBook(q.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &b, nil
}

func (r *PGRepository) CreateBook(ctx context.Context, book *Book) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO books (title, author, isbn, total_copies, available_copies, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4, now(), now())
		RETURNING id, available_copies, created_at, updated_at`,
		book.Title, book.Author, book.ISBN, book.TotalCopies).
		Scan(&book.ID, &book.AvailableCopies, &book.CreatedAt, &book.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("isbn already cataloged: %w", shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *PGRepository) UpdateBook(ctx context.Context, book *Book) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, total_copies = $5, updated_at = now()
		WHERE id = $1`,
		book.ID, book.Title, book.Author, book.ISBN, book.TotalCopies)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("isbn already cataloged: %w", shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) DeleteBook(ctx context.Context, id int64) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AdjustAvailability moves available_copies by delta, refusing to cross zero
// or exceed total_copies. A zero-row update means no copy was available.
func (r *PGRepository) AdjustAvailability(ctx context.Context, bookID int64, delta int) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE books
		SET available_copies = available_copies + $2, updated_at = now()
		WHERE id = $1
		  AND available_copies + $2 >= 0
		  AND available_copies + $2 <= total_copies`,
		bookID, delta)
	if err != nil {
		return fmt.Errorf("adjust availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no copies available: %w", shared.ErrValidation)
	}
	return nil
}

const loanColumns = `id, book_id, borrower_id, status, borrowed_at, due_at, returned_at`

func (r *PGRepository) CreateLoan(ctx context.Context, loan *Loan) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO loans (book_id, borrower_id, status, borrowed_at, due_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		loan.BookID, loan.BorrowerID, loan.Status, loan.BorrowedAt, loan.DueAt).
		Scan(&loan.ID)
	if err != nil {
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

func (r *PGRepository) FindLoan(ctx context.Context, id int64) (*Loan, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var l Loan
	err := q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id).
		Scan(&l.ID, &l.BookID, &l.BorrowerID, &l.Status, &l.BorrowedAt, &l.DueAt, &l.ReturnedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return &l, nil
}

func (r *PGRepository) ListLoansByBorrower(ctx context.Context, borrowerID int64) ([]Loan, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+loanColumns+` FROM loans
		WHERE borrower_id = $1
		ORDER BY borrowed_at DESC`, borrowerID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.BookID, &l.BorrowerID, &l.Status, &l.BorrowedAt, &l.DueAt, &l.ReturnedAt); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepository) HasOverdueLoans(ctx context.Context, borrowerID int64) (bool, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loans
			WHERE borrower_id = $1
			  AND (status = $2 OR (status = $3 AND due_at < now()))
		)`, borrowerID, LoanOverdue, LoanBorrowed).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check overdue: %w", err)
	}
	return exists, nil
}

func (r *PGRepository) MarkReturned(ctx context.Context, loanID int64, at time.Time) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE loans SET status = $2, returned_at = $3
		WHERE id = $1 AND status != $2`,
		loanID, LoanReturned, at)
	if err != nil {
		return fmt.Errorf("mark returned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkOverdue flips every past-due borrowed loan to overdue and reports how
// many rows changed. Used by the background sweep.
func (r *PGRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE loans SET status = $1
		WHERE status = $2 AND due_at < $3`,
		LoanOverdue, LoanBorrowed, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanBook(row pgx.Row, b *Book) error {
	return row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt)
}
