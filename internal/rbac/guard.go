package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/acadia-sms/acadia/internal/platform/httpx"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Require checks that the principal holds every listed permission. It fails
// closed: a nil principal is unauthenticated, an unrecognized role or a
// missing grant is forbidden. On success the principal is returned unchanged
// so handlers can keep using it.
func Require(p *Principal, perms ...Permission) (*Principal, error) {
	if p == nil {
		return nil, shared.ErrUnauthenticated
	}
	granted, ok := RolePermissions[p.Role]
	if !ok {
		return nil, fmt.Errorf("invalid role %q: %w", p.Role, shared.ErrForbidden)
	}
	set := make(map[Permission]struct{}, len(granted))
	for _, g := range granted {
		set[g] = struct{}{}
	}
	for _, required := range perms {
		if _, ok := set[required]; !ok {
			return nil, fmt.Errorf("missing permission %q: %w", required, shared.ErrForbidden)
		}
	}
	return p, nil
}

// RequireAny checks that the principal holds at least one listed permission.
func RequireAny(p *Principal, perms ...Permission) (*Principal, error) {
	if p == nil {
		return nil, shared.ErrUnauthenticated
	}
	if len(perms) == 0 {
		return p, nil
	}
	granted, ok := RolePermissions[p.Role]
	if !ok {
		return nil, fmt.Errorf("invalid role %q: %w", p.Role, shared.ErrForbidden)
	}
	for _, g := range granted {
		for _, required := range perms {
			if g == required {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("missing one of %v: %w", perms, shared.ErrForbidden)
}

// Middleware wires the guard in front of HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAll blocks the request unless the principal holds every permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := Require(PrincipalFromContext(r.Context()), perms...); err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyOf blocks the request unless the principal holds at least one of
// the permissions.
func (m Middleware) RequireAnyOf(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := RequireAny(PrincipalFromContext(r.Context()), perms...); err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.Warn("authorization denied",
			slog.String("path", r.URL.Path),
			slog.String("reason", shared.UserSafeMessage(err)))
	}
	httpx.RespondError(w, err)
}
