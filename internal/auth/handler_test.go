package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/rbac"
)

func newTestRouter(t *testing.T, repo *stubRepo) (*chi.Mux, *Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := newTestService(repo)
	handler := NewHandler(logger, svc)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)

	// A student-reachable and an admin-only endpoint to exercise the
	// guard behind real authentication.
	rbacmw := rbac.Middleware{Logger: logger}
	r.Group(func(r chi.Router) {
		r.Use(svc.RequireAuth(logger))
		r.With(rbacmw.RequireAll(rbac.PermViewSchoolRules)).Get("/rules", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		r.With(rbacmw.RequireAll(rbac.PermManageUsers)).Get("/admin/users", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r, svc
}

func doJSON(t *testing.T, router http.Handler, method, path, bearer string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestRegisterLoginAndGuardScenario(t *testing.T) {
	router, _ := newTestRouter(t, newStubRepo())

	// Register defaults to the student role and returns a token pair.
	res := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "mallory",
		"email":    "mallory@school.test",
		"name":     "Mallory",
		"password": "long enough pw",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var pair TokenPair
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	// Login with the same credentials works too.
	res = doJSON(t, router, http.MethodPost, "/auth/token", "", map[string]string{
		"username": "mallory",
		"password": "long enough pw",
	})
	assert.Equal(t, http.StatusOK, res.Code)

	// Student permission passes, admin permission is forbidden.
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/rules", pair.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, router, http.MethodGet, "/admin/users", pair.AccessToken, nil).Code)

	// A refresh token is never accepted as a bearer credential.
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, router, http.MethodGet, "/rules", pair.RefreshToken, nil).Code)

	// But it does mint a fresh access token at the refresh endpoint.
	res = doJSON(t, router, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, res.Code)
	var refreshed map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &refreshed))
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/rules", refreshed["access_token"], nil).Code)
}

func TestLoginBadCredentials(t *testing.T) {
	repo := newStubRepo()
	repo.mustAdd(t, "alice", "correct horse", "student", true)
	router, _ := newTestRouter(t, repo)

	res := doJSON(t, router, http.MethodPost, "/auth/token", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Bearer", res.Header().Get("WWW-Authenticate"))
}

func TestLoginAcceptsFormEncoding(t *testing.T) {
	repo := newStubRepo()
	repo.mustAdd(t, "alice", "correct horse", "student", true)
	router, _ := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewBufferString("username=alice&password=correct+horse"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code, res.Body.String())
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	repo := newStubRepo()
	repo.mustAdd(t, "alice", "correct horse", "student", true)
	router, _ := newTestRouter(t, repo)

	res := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "a2@school.test",
		"name":     "Alice Again",
		"password": "long enough pw",
	})
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, newStubRepo())

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, router, http.MethodGet, "/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, router, http.MethodGet, "/auth/me", "not-a-jwt", nil).Code)
}

func TestStoreFaultIsGenericServerError(t *testing.T) {
	repo := newStubRepo()
	user := repo.mustAdd(t, "alice", "correct horse", "student", true)
	router, svc := newTestRouter(t, repo)

	pair, err := svc.IssueTokens(user)
	require.NoError(t, err)

	repo.err = errors.New("connection refused")
	res := doJSON(t, router, http.MethodGet, "/rules", pair.AccessToken, nil)
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "connection refused")
}
