package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/acadia-sms/acadia/internal/password"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
	"github.com/acadia-sms/acadia/internal/token"
)

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	codec *token.Codec
}

// NewService constructs a new Service.
func NewService(repo Repository, codec *token.Codec) *Service {
	return &Service{repo: repo, codec: codec}
}

// Authenticate validates username/password credentials. Unknown users,
// disabled accounts and bad passwords all report the same error.
func (s *Service) Authenticate(ctx context.Context, username, plaintext string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if !password.Verify(plaintext, user.PasswordHash) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterParams carries the fields required to create an account.
type RegisterParams struct {
	Username string
	Email    string
	Name     string
	Password string
	Role     rbac.Role
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return nil, fmt.Errorf("username required: %w", shared.ErrValidation)
	}
	if _, ok := rbac.ParseRole(string(params.Role)); !ok {
		return nil, fmt.Errorf("unknown role %q: %w", params.Role, shared.ErrValidation)
	}
	digest, err := password.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &User{
		Username:     username,
		Email:        strings.TrimSpace(params.Email),
		Name:         strings.TrimSpace(params.Name),
		Role:         string(params.Role),
		PasswordHash: digest,
	})
}

// IssueTokens signs a fresh access/refresh pair for the user.
func (s *Service) IssueTokens(user *User) (*TokenPair, error) {
	access, err := s.codec.IssueAccess(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh exchanges a refresh token for a new access token. Access tokens
// presented here are rejected regardless of their expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrUnauthenticated, err)
	}
	if !claims.IsRefresh() {
		return "", fmt.Errorf("refresh token required: %w", shared.ErrUnauthenticated)
	}
	user, err := s.repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", fmt.Errorf("unknown subject: %w", shared.ErrUnauthenticated)
		}
		return "", err
	}
	if !user.IsActive {
		return "", fmt.Errorf("account disabled: %w", shared.ErrUnauthenticated)
	}
	return s.codec.IssueAccess(user.ID, user.Username, user.Role)
}

// Resolve reconstructs the principal for a bearer token string. The token
// must be a live access token whose subject still resolves to an account.
// Role validity is deliberately left to the permission guard: an account
// with an unrecognized role authenticates fine and then fails authorization.
func (s *Service) Resolve(ctx context.Context, tokenString string) (*rbac.Principal, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrUnauthenticated, err)
	}
	if !claims.IsAccess() {
		return nil, fmt.Errorf("access token required: %w", shared.ErrUnauthenticated)
	}
	user, err := s.repo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("unknown subject: %w", shared.ErrUnauthenticated)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account disabled: %w", shared.ErrUnauthenticated)
	}
	return &rbac.Principal{ID: user.ID, Username: user.Username, Role: rbac.Role(user.Role)}, nil
}
