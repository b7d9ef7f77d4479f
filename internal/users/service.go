package users

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Auditor records administrative actions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies account administration logic.
type Service struct {
	repo    Repository
	auditor Auditor
}

// NewService constructs a Service.
func NewService(repo Repository, auditor Auditor) *Service {
	return &Service{repo: repo, auditor: auditor}
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindAccount(ctx, id)
}

// UpdateParams carries account edits.
type UpdateParams struct {
	Email    string
	Name     string
	IsActive *bool
}

// Update edits mutable account fields.
func (s *Service) Update(ctx context.Context, actorID, id int64, params UpdateParams) (*Account, error) {
	account, err := s.repo.FindAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Email != "" {
		account.Email = params.Email
	}
	if params.Name != "" {
		account.Name = params.Name
	}
	if params.IsActive != nil {
		if !*params.IsActive && id == actorID {
			return nil, fmt.Errorf("cannot deactivate own account: %w", shared.ErrValidation)
		}
		account.IsActive = *params.IsActive
	}
	if err := s.repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, actorID, "users.update", id, nil); err != nil {
		return nil, err
	}
	return account, nil
}

// AssignRole moves an account to a different role.
func (s *Service) AssignRole(ctx context.Context, actorID, id int64, role string) (*Account, error) {
	parsed, ok := rbac.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q: %w", role, shared.ErrValidation)
	}
	if id == actorID {
		return nil, fmt.Errorf("cannot change own role: %w", shared.ErrValidation)
	}
	if err := s.repo.SetRole(ctx, id, string(parsed)); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, actorID, "users.assign_role", id, map[string]any{"role": string(parsed)}); err != nil {
		return nil, err
	}
	return s.repo.FindAccount(ctx, id)
}

// Deactivate disables an account without deleting its history.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return fmt.Errorf("cannot deactivate own account: %w", shared.ErrValidation)
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.audit(ctx, actorID, "users.deactivate", id, nil)
}

// EnrollParams carries student profile creation input.
type EnrollParams struct {
	UserID     int64
	GradeLevel int
	ClassName  string
}

// EnrollStudent creates the student profile for an existing user account.
func (s *Service) EnrollStudent(ctx context.Context, actorID int64, params EnrollParams) (*StudentProfile, error) {
	if params.GradeLevel < 1 || params.GradeLevel > 13 {
		return nil, fmt.Errorf("grade_level out of range: %w", shared.ErrValidation)
	}
	account, err := s.repo.FindAccount(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	if account.Role != string(rbac.RoleStudent) {
		return nil, fmt.Errorf("account role %q cannot be enrolled: %w", account.Role, shared.ErrValidation)
	}
	profile := &StudentProfile{
		UserID:         params.UserID,
		GradeLevel:     params.GradeLevel,
		ClassName:      params.ClassName,
		EnrollmentDate: time.Now().UTC(),
	}
	if err := s.repo.CreateStudentProfile(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, actorID, "students.enroll", params.UserID, map[string]any{"class": params.ClassName}); err != nil {
		return nil, err
	}
	return profile, nil
}

// Students lists every student profile.
func (s *Service) Students(ctx context.Context) ([]StudentProfile, error) {
	return s.repo.ListStudentProfiles(ctx)
}

// Overview returns the system stats.
func (s *Service) Overview(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) audit(ctx context.Context, actorID int64, action string, subjectID int64, meta map[string]any) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(subjectID, 10),
		Meta:     meta,
	})
}
