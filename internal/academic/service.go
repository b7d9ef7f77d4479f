package academic

import (
	"context"
	"fmt"

	"github.com/acadia-sms/acadia/internal/shared"
)

// Service applies grade business logic.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OwnGrades returns the grades for the student profile linked to the user.
// Users without a student profile get ErrNotFound.
func (s *Service) OwnGrades(ctx context.Context, userID int64) ([]Grade, error) {
	student, err := s.repo.StudentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByStudent(ctx, student.ID)
}

// GradesFor returns all grades for a student profile.
func (s *Service) GradesFor(ctx context.Context, studentID int64) ([]Grade, error) {
	if _, err := s.repo.StudentByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.repo.ListByStudent(ctx, studentID)
}

// RecordParams carries grade entry input.
type RecordParams struct {
	StudentID  int64
	Subject    string
	Score      float64
	Term       string
	RecordedBy int64
}

// Record writes a new grade for a student.
func (s *Service) Record(ctx context.Context, params RecordParams) (*Grade, error) {
	if params.Score < 0 || params.Score > 100 {
		return nil, fmt.Errorf("score must be between 0 and 100: %w", shared.ErrValidation)
	}
	if _, err := s.repo.StudentByID(ctx, params.StudentID); err != nil {
		return nil, err
	}
	grade := &Grade{
		StudentID:  params.StudentID,
		Subject:    params.Subject,
		Score:      params.Score,
		Term:       params.Term,
		RecordedBy: params.RecordedBy,
	}
	if err := s.repo.Create(ctx, grade); err != nil {
		return nil, err
	}
	return grade, nil
}
