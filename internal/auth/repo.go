package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository defines the user-store operations the auth module needs.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
}

// PGRepository implements Repository against PostgreSQL. Statements run
// through the request transaction when one is active.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, name, role, password_hash, is_active, created_at`

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// Create inserts a new user and returns it with generated fields populated.
func (r *PGRepository) Create(ctx context.Context, user *User) (*User, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx,
		`INSERT INTO users (username, email, name, role, password_hash, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING `+userColumns,
		user.Username, user.Email, user.Name, user.Role, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("username or email: %w", shared.ErrDuplicate)
		}
		return nil, err
	}
	return created, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.Role, &user.PasswordHash, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
