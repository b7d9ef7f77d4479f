package academic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/shared"
)

type stubRepo struct {
	students map[int64]*StudentRef // by profile id
	byUser   map[int64]*StudentRef
	grades   map[int64][]Grade
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		students: map[int64]*StudentRef{},
		byUser:   map[int64]*StudentRef{},
		grades:   map[int64][]Grade{},
		nextID:   1,
	}
}

func (s *stubRepo) addStudent(id, userID int64) {
	ref := &StudentRef{ID: id, UserID: userID, GradeLevel: 9, ClassName: "9A"}
	s.students[id] = ref
	s.byUser[userID] = ref
}

func (s *stubRepo) StudentByUserID(ctx context.Context, userID int64) (*StudentRef, error) {
	ref, ok := s.byUser[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ref, nil
}

func (s *stubRepo) StudentByID(ctx context.Context, studentID int64) (*StudentRef, error) {
	ref, ok := s.students[studentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ref, nil
}

func (s *stubRepo) ListByStudent(ctx context.Context, studentID int64) ([]Grade, error) {
	return s.grades[studentID], nil
}

func (s *stubRepo) Create(ctx context.Context, grade *Grade) error {
	grade.ID = s.nextID
	s.nextID++
	s.grades[grade.StudentID] = append(s.grades[grade.StudentID], *grade)
	return nil
}

func TestOwnGradesRequiresStudentProfile(t *testing.T) {
	svc := NewService(newStubRepo())

	_, err := svc.OwnGrades(context.Background(), 77)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOwnGradesResolvesProfile(t *testing.T) {
	repo := newStubRepo()
	repo.addStudent(3, 77)
	svc := NewService(repo)

	_, err := svc.Record(context.Background(), RecordParams{StudentID: 3, Subject: "math", Score: 91, Term: "2026-T1", RecordedBy: 1})
	require.NoError(t, err)

	grades, err := svc.OwnGrades(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "math", grades[0].Subject)
}

func TestRecordRejectsOutOfRangeScore(t *testing.T) {
	repo := newStubRepo()
	repo.addStudent(3, 77)
	svc := NewService(repo)

	_, err := svc.Record(context.Background(), RecordParams{StudentID: 3, Subject: "math", Score: 101, Term: "2026-T1"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Record(context.Background(), RecordParams{StudentID: 3, Subject: "math", Score: -1, Term: "2026-T1"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordUnknownStudent(t *testing.T) {
	svc := NewService(newStubRepo())

	_, err := svc.Record(context.Background(), RecordParams{StudentID: 12, Subject: "math", Score: 80, Term: "2026-T1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
