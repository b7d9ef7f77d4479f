package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/shared"
)

type stubRepo struct {
	rules  map[int64]*Rule
	nextID int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{rules: map[int64]*Rule{}, nextID: 1}
}

func (s *stubRepo) List(ctx context.Context) ([]Rule, error) {
	out := make([]Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*Rule, error) {
	r, ok := s.rules[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *stubRepo) Create(ctx context.Context, rule *Rule) error {
	rule.ID = s.nextID
	s.nextID++
	clone := *rule
	s.rules[rule.ID] = &clone
	return nil
}

func (s *stubRepo) Update(ctx context.Context, rule *Rule) error {
	if _, ok := s.rules[rule.ID]; !ok {
		return shared.ErrNotFound
	}
	clone := *rule
	s.rules[rule.ID] = &clone
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.rules[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func TestCreateDefaultsCategory(t *testing.T) {
	svc := NewService(newStubRepo())

	rule, err := svc.Create(context.Background(), CreateParams{Title: "No running", Content: "Walk in the halls."})
	require.NoError(t, err)
	assert.Equal(t, "general", rule.Category)
	assert.NotZero(t, rule.ID)
}

func TestCreateRequiresTitleAndContent(t *testing.T) {
	svc := NewService(newStubRepo())

	_, err := svc.Create(context.Background(), CreateParams{Title: "   ", Content: ""})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	rule, err := svc.Create(context.Background(), CreateParams{Title: "Quiet zones", Content: "Library is silent.", Category: "library"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), rule.ID, CreateParams{Content: "Library and study halls are silent."})
	require.NoError(t, err)
	assert.Equal(t, "Quiet zones", updated.Title)
	assert.Equal(t, "library", updated.Category)
	assert.Equal(t, "Library and study halls are silent.", updated.Content)
}

func TestUpdateMissingRule(t *testing.T) {
	svc := NewService(newStubRepo())

	_, err := svc.Update(context.Background(), 42, CreateParams{Title: "x"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteMissingRule(t *testing.T) {
	svc := NewService(newStubRepo())

	assert.ErrorIs(t, svc.Delete(context.Background(), 9), shared.ErrNotFound)
}
