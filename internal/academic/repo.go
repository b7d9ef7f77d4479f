package academic

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository abstracts grade persistence.
type Repository interface {
	StudentByUserID(ctx context.Context, userID int64) (*StudentRef, error)
	StudentByID(ctx context.Context, studentID int64) (*StudentRef, error)
	ListByStudent(ctx context.Context, studentID int64) ([]Grade, error)
	Create(ctx context.Context, grade *Grade) error
}

// PGRepository is the Postgres implementation of Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) StudentByUserID(ctx context.Context, userID int64) (*StudentRef, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var ref StudentRef
	err := q.QueryRow(ctx, `
		SELECT id, user_id, grade_level, class_name
		FROM student_profiles WHERE user_id = $1`, userID).
		Scan(&ref.ID, &ref.UserID, &ref.GradeLevel, &ref.ClassName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student by user: %w", err)
	}
	return &ref, nil
}

func (r *PGRepository) StudentByID(ctx context.Context, studentID int64) (*StudentRef, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var ref StudentRef
	err := q.QueryRow(ctx, `
		SELECT id, user_id, grade_level, class_name
		FROM student_profiles WHERE id = $1`, studentID).
		Scan(&ref.ID, &ref.UserID, &ref.GradeLevel, &ref.ClassName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("student by id: %w", err)
	}
	return &ref, nil
}

func (r *PGRepository) ListByStudent(ctx context.Context, studentID int64) ([]Grade, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, student_id, subject, score, term, recorded_by, created_at
		FROM grades WHERE student_id = $1
		ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	var out []Grade
	for rows.Next() {
		var g Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.Subject, &g.Score, &g.Term, &g.RecordedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grade: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, grade *Grade) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO grades (student_id, subject, score, term, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at`,
		grade.StudentID, grade.Subject, grade.Score, grade.Term, grade.RecordedBy).
		Scan(&grade.ID, &grade.CreatedAt)
	if err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}
