package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/acadia-sms/acadia/internal/shared"
)

// Auditor records configuration changes. Satisfied by *shared.AuditLogger.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates maintenance config reads and updates.
type Service struct {
	repo  Repository
	audit Auditor
}

// NewService constructs a Service.
func NewService(repo Repository, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// Status returns the current config. When no record exists the zero state is
// reported: disabled, admin access allowed.
func (s *Service) Status(ctx context.Context) (*Config, error) {
	cfg, err := s.repo.Current(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &Config{AllowAdminAccess: true}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// UpdateParams carries the admin-supplied config fields.
type UpdateParams struct {
	IsEnabled        bool
	Message          string
	StartTime        *time.Time
	EndTime          *time.Time
	AllowAdminAccess bool
}

// Update replaces the config record. The write goes through the request
// transaction, so the new flag value becomes visible to other requests at
// commit, giving read-your-writes ordering for subsequent requests.
func (s *Service) Update(ctx context.Context, actorID int64, params UpdateParams) (*Config, error) {
	stored, err := s.repo.Save(ctx, &Config{
		IsEnabled:        params.IsEnabled,
		Message:          params.Message,
		StartTime:        params.StartTime,
		EndTime:          params.EndTime,
		AllowAdminAccess: params.AllowAdminAccess,
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "maintenance.update",
			Entity:   "maintenance_config",
			EntityID: "1",
			Meta: map[string]any{
				"is_enabled":         stored.IsEnabled,
				"allow_admin_access": stored.AllowAdminAccess,
			},
		}); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

// ApplyWindow reconciles is_enabled with the configured start/end window.
// Called from the background worker; returns the applied state and whether a
// write happened.
func (s *Service) ApplyWindow(ctx context.Context, now time.Time) (*Config, bool, error) {
	cfg, err := s.repo.Current(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	want, decided := WindowDecision(cfg, now)
	if !decided || want == cfg.IsEnabled {
		return cfg, false, nil
	}
	cfg.IsEnabled = want
	stored, err := s.repo.Save(ctx, cfg)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// WindowDecision returns the is_enabled value implied by the config's window
// at the given instant. decided is false when no window is configured, in
// which case the flag is operator-controlled only.
func WindowDecision(cfg *Config, now time.Time) (enabled, decided bool) {
	if cfg == nil || (cfg.StartTime == nil && cfg.EndTime == nil) {
		return false, false
	}
	return cfg.WindowActive(now), true
}
