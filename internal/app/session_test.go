package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/app"
	"github.com/acadia-sms/acadia/internal/platform/db"
)

// fakeTx embeds pgx.Tx for the type only; the session middleware must never
// touch anything beyond Commit and Rollback.
type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.commits++; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rollbacks++; return nil }

type fakeBeginner struct {
	tx    *fakeTx
	begun int
	err   error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.begun++
	return b.tx, nil
}

func TestRequestSessionCommitsOnSuccess(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	handler := app.RequestSession(beginner, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Implicit 200 via body write.
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, beginner.begun)
	assert.Equal(t, 1, beginner.tx.commits)
	assert.Equal(t, 0, beginner.tx.rollbacks)
}

func TestRequestSessionRollsBackOnErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusInternalServerError} {
		beginner := &fakeBeginner{tx: &fakeTx{}}
		handler := app.RequestSession(beginner, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equalf(t, status, res.Code, "status %d", status)
		assert.Equalf(t, 0, beginner.tx.commits, "status %d must not commit", status)
		assert.Equalf(t, 1, beginner.tx.rollbacks, "status %d must roll back", status)
	}
}

func TestRequestSessionRollsBackOnPanicExactlyOnce(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	handler := app.RequestSession(beginner, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	res := httptest.NewRecorder()
	require.Panics(t, func() {
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, 0, beginner.tx.commits)
	assert.Equal(t, 1, beginner.tx.rollbacks, "release must run exactly once")
}

func TestRequestSessionBeginFailureIsInternalError(t *testing.T) {
	beginner := &fakeBeginner{err: errors.New("pool exhausted")}
	handler := app.RequestSession(beginner, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "pool exhausted")
}

func TestRequestSessionExposesQuerierInContext(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}
	var seen db.Querier
	handler := app.RequestSession(beginner, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = db.QuerierFromContext(r.Context(), nil)
		w.WriteHeader(http.StatusNoContent)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	assert.Same(t, beginner.tx, seen)
}

func TestBlockedRequestsNeverOpenASession(t *testing.T) {
	beginner := &fakeBeginner{tx: &fakeTx{}}

	// A stand-in for the maintenance gate that short-circuits without
	// calling the next handler, the way the real gate responds 503.
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
		})
	}

	var chained http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chained = app.RequestSession(beginner, nil)(chained)
	chained = blocked(chained)

	res := httptest.NewRecorder()
	chained.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/rules", nil))

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, 0, beginner.begun, "gate-blocked requests must not acquire a tx")
}
