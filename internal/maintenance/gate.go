package maintenance

import (
	"log/slog"
	"net/http"

	"github.com/acadia-sms/acadia/internal/auth"
	"github.com/acadia-sms/acadia/internal/platform/httpx"
	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/token"
)

// allowListPaths are reachable regardless of the maintenance flag. Operators
// must always be able to query and flip the flag, and clients must be able
// to authenticate to prove admin status.
var allowListPaths = map[string]struct{}{
	"/healthz":             {},
	"/maintenance/status":  {},
	"/maintenance/config":  {},
	"/auth/token":          {},
}

// Gate blocks requests while maintenance mode is enabled. It runs in front
// of the request-session middleware, so blocked requests never open a
// transaction.
type Gate struct {
	service *Service
	codec   *token.Codec
	logger  *slog.Logger
}

// NewGate constructs a Gate.
func NewGate(service *Service, codec *token.Codec, logger *slog.Logger) *Gate {
	return &Gate{service: service, codec: codec, logger: logger}
}

// Middleware evaluates the gate for each request. The flag is read fresh
// from the store every time: a toggle committed by one request is visible to
// the very next one.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, err := g.service.Status(r.Context())
		if err != nil {
			if g.logger != nil {
				g.logger.Error("maintenance gate: load config", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if !cfg.IsEnabled {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := allowListPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		if cfg.AllowAdminAccess && g.isAdminBearer(r) {
			next.ServeHTTP(w, r)
			return
		}
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", cfg.BlockMessage())
	})
}

// isAdminBearer reports whether the request carries an admin access token.
// Decode failures of any kind mean "not admin" here; this is the one place
// where token errors are swallowed instead of surfaced, so that a broken or
// expired token degrades to a plain 503 rather than a confusing 401.
func (g *Gate) isAdminBearer(r *http.Request) bool {
	tokenString := auth.BearerToken(r)
	if tokenString == "" {
		return false
	}
	claims, err := g.codec.Decode(tokenString)
	if err != nil {
		return false
	}
	return claims.IsAccess() && claims.Role == string(rbac.RoleAdmin)
}
