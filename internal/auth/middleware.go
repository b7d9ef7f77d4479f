package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/acadia-sms/acadia/internal/platform/httpx"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// BearerToken extracts the token from an Authorization header, returning ""
// when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// RequireAuth resolves the bearer token into a principal and stores it in
// the request context. Token failures and unknown subjects are 401; a store
// fault is a generic 500 that leaks nothing about the cause.
func (s *Service) RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := BearerToken(r)
			if tokenString == "" {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			principal, err := s.Resolve(r.Context(), tokenString)
			if err != nil {
				if !errors.Is(err, shared.ErrUnauthenticated) && logger != nil {
					logger.Error("resolve principal", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := rbac.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
