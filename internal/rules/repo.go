package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository abstracts rule persistence.
type Repository interface {
	List(ctx context.Context) ([]Rule, error)
	FindByID(ctx context.Context, id int64) (*Rule, error)
	Create(ctx context.Context, rule *Rule) error
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository is the Postgres implementation of Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) List(ctx context.Context) ([]Rule, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, title, content, category, created_at, updated_at
		FROM school_rules
		ORDER BY category, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Title, &rule.Content, &rule.Category, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Rule, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var rule Rule
	err := q.QueryRow(ctx, `
		SELECT id, title, content, category, created_at, updated_at
		FROM school_rules WHERE id = $1`, id).
		Scan(&rule.ID, &rule.Title, &rule.Content, &rule.Category, &rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rule: %w", err)
	}
	return &rule, nil
}

func (r *PGRepository) Create(ctx context.Context, rule *Rule) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO school_rules (title, content, category, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, created_at, updated_at`,
		rule.Title, rule.Content, rule.Category).
		Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (r *PGRepository) Update(ctx context.Context, rule *Rule) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE school_rules
		SET title = $2, content = $3, category = $4, updated_at = now()
		WHERE id = $1`,
		rule.ID, rule.Title, rule.Content, rule.Category)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM school_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
