package maintenance_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/maintenance"
	"github.com/acadia-sms/acadia/internal/shared"
	"github.com/acadia-sms/acadia/internal/token"
)

type stubRepo struct {
	cfg   *maintenance.Config
	err   error
	saves int
}

func (s *stubRepo) Current(ctx context.Context) (*maintenance.Config, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cfg == nil {
		return nil, shared.ErrNotFound
	}
	copied := *s.cfg
	return &copied, nil
}

func (s *stubRepo) Save(ctx context.Context, cfg *maintenance.Config) (*maintenance.Config, error) {
	s.saves++
	copied := *cfg
	copied.UpdatedAt = time.Now()
	s.cfg = &copied
	return &copied, nil
}

func newGate(repo *stubRepo, codec *token.Codec) http.Handler {
	gate := maintenance.NewGate(maintenance.NewService(repo, nil), codec, nil)
	return gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func testCodec() *token.Codec {
	return token.NewCodec("gate-secret", "acadia-test", time.Hour, 24*time.Hour)
}

func TestGateDisabledPassesThrough(t *testing.T) {
	for _, repo := range []*stubRepo{
		{cfg: nil}, // no config record at all
		{cfg: &maintenance.Config{IsEnabled: false}},
	} {
		res := httptest.NewRecorder()
		newGate(repo, testCodec()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))
		assert.Equal(t, http.StatusOK, res.Code)
	}
}

func TestGateBlocksWithConfiguredMessage(t *testing.T) {
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: true, Message: "back at noon"}}

	res := httptest.NewRecorder()
	newGate(repo, testCodec()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Contains(t, res.Body.String(), "back at noon")
}

func TestGateBlocksWithDefaultMessageWhenEmpty(t *testing.T) {
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: true}}

	res := httptest.NewRecorder()
	newGate(repo, testCodec()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Contains(t, res.Body.String(), maintenance.DefaultMessage)
}

func TestGateAllowListAlwaysReachable(t *testing.T) {
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: true, AllowAdminAccess: false}}
	gate := newGate(repo, testCodec())

	for _, path := range []string{"/healthz", "/maintenance/status", "/maintenance/config", "/auth/token"} {
		res := httptest.NewRecorder()
		gate.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equalf(t, http.StatusOK, res.Code, "path %s must bypass the gate", path)
	}
}

func TestGateAdminBypass(t *testing.T) {
	codec := testCodec()
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: true, AllowAdminAccess: true}}
	gate := newGate(repo, codec)

	adminToken, err := codec.IssueAccess(1, "root", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	res := httptest.NewRecorder()
	gate.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestGateBypassRequiresAdminAccessFlag(t *testing.T) {
	codec := testCodec()
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: true, AllowAdminAccess: false}}
	gate := newGate(repo, codec)

	adminToken, err := codec.IssueAccess(1, "root", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	res := httptest.NewRecorder()
	gate.ServeHTTP(res, req)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestGateSwallowsTokenFailures(t *testing.T) {
	codec := testCodec()
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: true, AllowAdminAccess: true}}
	gate := newGate(repo, codec)

	studentToken, err := codec.IssueAccess(2, "alice", "student")
	require.NoError(t, err)
	adminRefresh, err := codec.IssueRefresh(1, "root", "admin")
	require.NoError(t, err)

	for name, header := range map[string]string{
		"garbage":             "Bearer not.a.token",
		"wrong scheme":        "Basic abc",
		"student token":       "Bearer " + studentToken,
		"admin refresh token": "Bearer " + adminRefresh,
	} {
		req := httptest.NewRequest(http.MethodGet, "/rules", nil)
		req.Header.Set("Authorization", header)
		res := httptest.NewRecorder()
		gate.ServeHTTP(res, req)
		// Never a 401 out of the gate: any failure is just "not admin".
		assert.Equalf(t, http.StatusServiceUnavailable, res.Code, "case %s", name)
	}
}

func TestGateReadsFreshConfigEachRequest(t *testing.T) {
	repo := &stubRepo{cfg: &maintenance.Config{IsEnabled: false}}
	gate := newGate(repo, testCodec())

	res := httptest.NewRecorder()
	gate.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))
	require.Equal(t, http.StatusOK, res.Code)

	// Flip the flag; the very next request must observe it.
	repo.cfg.IsEnabled = true
	res = httptest.NewRecorder()
	gate.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))
	require.Equal(t, http.StatusServiceUnavailable, res.Code)

	// And back again.
	repo.cfg.IsEnabled = false
	res = httptest.NewRecorder()
	gate.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))
	require.Equal(t, http.StatusOK, res.Code)
}

func TestGateStoreFaultIsInternalError(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection refused")}

	res := httptest.NewRecorder()
	newGate(repo, testCodec()).ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "connection refused")
}
