package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/platform/httpx"
)

// statusWriter records the first status code written by the handler chain.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func (w *statusWriter) Status() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.status
}

// RequestSession owns the transactional store handle for one request. Every
// non-blocked request runs inside a single transaction reachable through the
// context querier; the outcome decides its fate:
//
//   - response status < 400: commit
//   - response status >= 400: rollback, so handler-reported errors never
//     leave partial writes behind
//   - panic or transport cancellation: rollback, then re-panic for the outer
//     recoverer to turn into a generic 500
//
// Release happens exactly once; the released flag guards against double
// commit/rollback.
func RequestSession(beginner db.Beginner, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tx, err := beginner.Begin(ctx)
			if err != nil {
				if logger != nil {
					logger.Error("begin request tx", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}

			released := false
			release := func(commit bool) {
				if released {
					return
				}
				released = true
				// The request context may already be cancelled; the
				// release itself must still reach the database.
				releaseCtx := context.WithoutCancel(ctx)
				if commit {
					if err := tx.Commit(releaseCtx); err != nil && logger != nil {
						logger.Error("commit request tx", slog.Any("error", err))
					}
					return
				}
				if err := tx.Rollback(releaseCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) && logger != nil {
					logger.Warn("rollback request tx", slog.Any("error", err))
				}
			}

			defer func() {
				if p := recover(); p != nil {
					release(false)
					panic(p)
				}
			}()

			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(db.ContextWithQuerier(ctx, tx)))
			release(sw.Status() < http.StatusBadRequest)
		})
	}
}
