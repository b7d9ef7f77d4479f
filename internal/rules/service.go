package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/acadia-sms/acadia/internal/shared"
)

// Service applies rule-book business logic on top of the repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every published rule ordered by category.
func (s *Service) List(ctx context.Context) ([]Rule, error) {
	return s.repo.List(ctx)
}

// Get returns a single rule by id.
func (s *Service) Get(ctx context.Context, id int64) (*Rule, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateParams carries rule creation input.
type CreateParams struct {
	Title    string
	Content  string
	Category string
}

// Create validates and stores a new rule.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Rule, error) {
	rule := &Rule{
		Title:    strings.TrimSpace(params.Title),
		Content:  strings.TrimSpace(params.Content),
		Category: strings.TrimSpace(params.Category),
	}
	if rule.Title == "" || rule.Content == "" {
		return nil, fmt.Errorf("title and content required: %w", shared.ErrValidation)
	}
	if rule.Category == "" {
		rule.Category = "general"
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Update replaces an existing rule.
func (s *Service) Update(ctx context.Context, id int64, params CreateParams) (*Rule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(params.Title); title != "" {
		rule.Title = title
	}
	if content := strings.TrimSpace(params.Content); content != "" {
		rule.Content = content
	}
	if category := strings.TrimSpace(params.Category); category != "" {
		rule.Category = category
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
