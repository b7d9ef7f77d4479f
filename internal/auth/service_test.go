package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/password"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
	"github.com/acadia-sms/acadia/internal/token"
)

type stubRepo struct {
	byUsername map[string]*User
	nextID     int64
	err        error
}

func newStubRepo() *stubRepo {
	return &stubRepo{byUsername: map[string]*User{}, nextID: 1}
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byUsername[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byUsername {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, user *User) (*User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.byUsername[user.Username]; ok {
		return nil, shared.ErrDuplicate
	}
	user.ID = s.nextID
	s.nextID++
	user.IsActive = true
	clone := *user
	s.byUsername[user.Username] = &clone
	return &clone, nil
}

func (s *stubRepo) mustAdd(t *testing.T, username, plaintext, role string, active bool) *User {
	t.Helper()
	digest, err := password.Hash(plaintext)
	require.NoError(t, err)
	user := &User{
		ID:           s.nextID,
		Username:     username,
		Email:        username + "@school.test",
		Name:         username,
		Role:         role,
		PasswordHash: digest,
		IsActive:     active,
	}
	s.nextID++
	s.byUsername[username] = user
	return user
}

func newTestService(repo *stubRepo) *Service {
	return NewService(repo, token.NewCodec("test-secret", "acadia", 30*time.Minute, 7*24*time.Hour))
}

func TestAuthenticateUniformFailures(t *testing.T) {
	repo := newStubRepo()
	repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleStudent), true)
	repo.mustAdd(t, "bob", "hunter2hunter2", string(rbac.RoleStudent), false)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "alice", "wrong password")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "bob", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	user, err := svc.Authenticate(ctx, "alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestAuthenticatePropagatesStoreFault(t *testing.T) {
	repo := newStubRepo()
	repo.err = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.Authenticate(context.Background(), "alice", "pw")
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newTestService(newStubRepo())

	_, err := svc.Register(context.Background(), RegisterParams{
		Username: "eve", Email: "e@school.test", Name: "Eve",
		Password: "long enough pw", Role: "headmaster",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newStubRepo()
	repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleStudent), true)
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), RegisterParams{
		Username: "alice", Email: "a@school.test", Name: "Alice",
		Password: "long enough pw", Role: rbac.RoleStudent,
	})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	repo := newStubRepo()
	user := repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleStudent), true)
	svc := newTestService(repo)

	pair, err := svc.IssueTokens(user)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	access, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
}

func TestResolveRejectsRefreshToken(t *testing.T) {
	repo := newStubRepo()
	user := repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleStudent), true)
	svc := newTestService(repo)

	pair, err := svc.IssueTokens(user)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveUnknownSubject(t *testing.T) {
	repo := newStubRepo()
	user := repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleStudent), true)
	svc := newTestService(repo)

	pair, err := svc.IssueTokens(user)
	require.NoError(t, err)
	delete(repo.byUsername, "alice")

	_, err = svc.Resolve(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveDisabledAccount(t *testing.T) {
	repo := newStubRepo()
	user := repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleStudent), true)
	svc := newTestService(repo)

	pair, err := svc.IssueTokens(user)
	require.NoError(t, err)
	repo.byUsername["alice"].IsActive = false

	_, err = svc.Resolve(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestResolveBuildsPrincipal(t *testing.T) {
	repo := newStubRepo()
	user := repo.mustAdd(t, "alice", "correct horse", string(rbac.RoleAdmin), true)
	svc := newTestService(repo)

	pair, err := svc.IssueTokens(user)
	require.NoError(t, err)

	principal, err := svc.Resolve(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, rbac.RoleAdmin, principal.Role)
}
