package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// allPermissions collects every permission granted to any role so the
// cross-product test exercises the full table.
func allPermissions() []rbac.Permission {
	seen := make(map[rbac.Permission]struct{})
	var perms []rbac.Permission
	for _, granted := range rbac.RolePermissions {
		for _, p := range granted {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms
}

func TestRolePermissionsIsTotal(t *testing.T) {
	for _, role := range rbac.AllRoles {
		_, ok := rbac.RolePermissions[role]
		assert.Truef(t, ok, "role %s has no permission set", role)
	}
	assert.Len(t, rbac.RolePermissions, len(rbac.AllRoles))
}

func TestRequireFullCrossProduct(t *testing.T) {
	for _, role := range rbac.AllRoles {
		granted := make(map[rbac.Permission]struct{})
		for _, p := range rbac.RolePermissions[role] {
			granted[p] = struct{}{}
		}
		principal := &rbac.Principal{ID: 1, Username: "u", Role: role}
		for _, perm := range allPermissions() {
			_, err := rbac.Require(principal, perm)
			if _, ok := granted[perm]; ok {
				assert.NoErrorf(t, err, "role %s should hold %s", role, perm)
			} else {
				assert.ErrorIsf(t, err, shared.ErrForbidden, "role %s should not hold %s", role, perm)
			}
		}
	}
}

func TestRequireNilPrincipal(t *testing.T) {
	_, err := rbac.Require(nil, rbac.PermViewSchoolRules)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRequireUnknownRole(t *testing.T) {
	principal := &rbac.Principal{ID: 1, Username: "ghost", Role: rbac.Role("superuser")}
	_, err := rbac.Require(principal, rbac.PermViewSchoolRules)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestRequireMissingPermissionNamesIt(t *testing.T) {
	principal := &rbac.Principal{ID: 1, Username: "alice", Role: rbac.RoleStudent}
	_, err := rbac.Require(principal, rbac.PermManageUsers)
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Contains(t, err.Error(), string(rbac.PermManageUsers))
}

func TestRequirePassesThroughPrincipal(t *testing.T) {
	principal := &rbac.Principal{ID: 9, Username: "lib", Role: rbac.RoleLibrarian}
	got, err := rbac.Require(principal, rbac.PermManageBooks, rbac.PermProcessLoans)
	require.NoError(t, err)
	assert.Same(t, principal, got)
}

func TestRequireAny(t *testing.T) {
	principal := &rbac.Principal{ID: 2, Username: "mod", Role: rbac.RoleModerator}

	_, err := rbac.RequireAny(principal, rbac.PermManageUsers, rbac.PermModerateTickets)
	assert.NoError(t, err)

	_, err = rbac.RequireAny(principal, rbac.PermManageUsers, rbac.PermManageGrades)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestParseRole(t *testing.T) {
	for _, role := range rbac.AllRoles {
		parsed, ok := rbac.ParseRole(string(role))
		require.True(t, ok)
		assert.Equal(t, role, parsed)
	}
	_, ok := rbac.ParseRole("root")
	assert.False(t, ok)
}

func TestMiddlewareStatusCodes(t *testing.T) {
	mw := rbac.Middleware{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := mw.RequireAll(rbac.PermManageUsers)(next)

	// No principal in context.
	res := httptest.NewRecorder()
	guarded.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// Student hitting an admin-only endpoint.
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	ctx := rbac.ContextWithPrincipal(req.Context(), &rbac.Principal{ID: 1, Username: "alice", Role: rbac.RoleStudent})
	res = httptest.NewRecorder()
	guarded.ServeHTTP(res, req.WithContext(ctx))
	assert.Equal(t, http.StatusForbidden, res.Code)

	// Admin passes.
	req = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	ctx = rbac.ContextWithPrincipal(req.Context(), &rbac.Principal{ID: 2, Username: "root", Role: rbac.RoleAdmin})
	res = httptest.NewRecorder()
	guarded.ServeHTTP(res, req.WithContext(ctx))
	assert.Equal(t, http.StatusOK, res.Code)
}
