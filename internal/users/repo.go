package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository abstracts account and profile persistence.
type Repository interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	FindAccount(ctx context.Context, id int64) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
	SetRole(ctx context.Context, id int64, role string) error
	Deactivate(ctx context.Context, id int64) error

	CreateStudentProfile(ctx context.Context, profile *StudentProfile) error
	ListStudentProfiles(ctx context.Context) ([]StudentProfile, error)

	Stats(ctx context.Context) (*Stats, error)
}

// PGRepository is the Postgres implementation of Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, username, email, name, role, is_active, created_at`

func (r *PGRepository) ListAccounts(ctx context.Context) ([]Account, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.Name, &a.Role, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) FindAccount(ctx context.Context, id int64) (*Account, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var a Account
	err := q.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id).
		Scan(&a.ID, &a.Username, &a.Email, &a.Name, &a.Role, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (r *PGRepository) UpdateAccount(ctx context.Context, account *Account) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE users SET email = $2, name = $3, is_active = $4
		WHERE id = $1`,
		account.ID, account.Email, account.Name, account.IsActive)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("email already in use: %w", shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) SetRole(ctx context.Context, id int64, role string) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Deactivate(ctx context.Context, id int64) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `UPDATE users SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) CreateStudentProfile(ctx context.Context, profile *StudentProfile) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO student_profiles (user_id, grade_level, class_name, enrollment_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		profile.UserID, profile.GradeLevel, profile.ClassName, profile.EnrollmentDate).
		Scan(&profile.ID)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("user already has a student profile: %w", shared.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create student profile: %w", err)
	}
	return nil
}

func (r *PGRepository) ListStudentProfiles(ctx context.Context) ([]StudentProfile, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, user_id, grade_level, class_name, enrollment_date
		FROM student_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list student profiles: %w", err)
	}
	defer rows.Close()

	var out []StudentProfile
	for rows.Next() {
		var p StudentProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.GradeLevel, &p.ClassName, &p.EnrollmentDate); err != nil {
			return nil, fmt.Errorf("scan student profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats runs the overview counts in one round-trip-per-table pass.
func (r *PGRepository) Stats(ctx context.Context) (*Stats, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	stats := &Stats{UsersByRole: map[string]int64{}}

	err := q.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE is_active)
		FROM users`).Scan(&stats.TotalUsers, &stats.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	rows, err := q.Query(ctx, `SELECT role, count(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("role stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan role stat: %w", err)
		}
		stats.UsersByRole[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := q.QueryRow(ctx, `SELECT count(*) FROM books`).Scan(&stats.TotalBooks); err != nil {
		return nil, fmt.Errorf("book stats: %w", err)
	}
	err = q.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'borrowed'),
			count(*) FILTER (WHERE status = 'overdue')
		FROM loans`).Scan(&stats.ActiveLoans, &stats.OverdueLoans)
	if err != nil {
		return nil, fmt.Errorf("loan stats: %w", err)
	}
	err = q.QueryRow(ctx, `SELECT count(*) FROM tickets WHERE status IN ('open', 'in_progress')`).
		Scan(&stats.OpenTickets)
	if err != nil {
		return nil, fmt.Errorf("ticket stats: %w", err)
	}
	return stats, nil
}
