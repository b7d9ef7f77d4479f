package maintenance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository defines persistence for the maintenance config record.
type Repository interface {
	// Current returns the config row, or shared.ErrNotFound when none exists.
	Current(ctx context.Context) (*Config, error)
	// Save upserts the single config row and returns the stored state.
	Save(ctx context.Context, cfg *Config) (*Config, error)
}

// PGRepository stores the config as a single row keyed by id=1. The row is
// written atomically as a whole, so concurrent readers see either the old or
// the new value, never a partial update.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Current reads the config fresh from the store. The gate calls this on
// every request; there is deliberately no caching layer in front of it.
func (r *PGRepository) Current(ctx context.Context) (*Config, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx,
		`SELECT is_enabled, message, start_time, end_time, allow_admin_access, updated_at
		 FROM maintenance_config WHERE id = 1`)
	var cfg Config
	err := row.Scan(&cfg.IsEnabled, &cfg.Message, &cfg.StartTime, &cfg.EndTime, &cfg.AllowAdminAccess, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// Save upserts the config row.
func (r *PGRepository) Save(ctx context.Context, cfg *Config) (*Config, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	row := q.QueryRow(ctx,
		`INSERT INTO maintenance_config (id, is_enabled, message, start_time, end_time, allow_admin_access, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   is_enabled = EXCLUDED.is_enabled,
		   message = EXCLUDED.message,
		   start_time = EXCLUDED.start_time,
		   end_time = EXCLUDED.end_time,
		   allow_admin_access = EXCLUDED.allow_admin_access,
		   updated_at = NOW()
		 RETURNING is_enabled, message, start_time, end_time, allow_admin_access, updated_at`,
		cfg.IsEnabled, cfg.Message, cfg.StartTime, cfg.EndTime, cfg.AllowAdminAccess)
	var stored Config
	if err := row.Scan(&stored.IsEnabled, &stored.Message, &stored.StartTime, &stored.EndTime, &stored.AllowAdminAccess, &stored.UpdatedAt); err != nil {
		return nil, err
	}
	return &stored, nil
}

var _ Repository = (*PGRepository)(nil)
