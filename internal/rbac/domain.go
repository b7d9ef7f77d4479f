// Package rbac maps the closed set of roles onto the static permission table
// and enforces it in front of every handler.
package rbac

import "context"

// Role is the closed enumeration of account roles. Adding a role requires an
// entry in RolePermissions; ParseRole rejects anything else.
type Role string

const (
	RoleStudent   Role = "student"
	RoleLibrarian Role = "librarian"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// AllRoles lists every known role. Kept in sync with RolePermissions by
// TestRolePermissionsIsTotal.
var AllRoles = []Role{RoleStudent, RoleLibrarian, RoleModerator, RoleAdmin}

// ParseRole maps a stored role string to a Role, reporting whether it is one
// of the known values.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleStudent, RoleLibrarian, RoleModerator, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// Permission is an opaque named capability. Permissions are static and never
// created at runtime.
type Permission string

const (
	// Student capabilities.
	PermViewOwnGrades   Permission = "view_own_grades"
	PermRequestBookLoan Permission = "request_book_loan"
	PermViewSchoolRules Permission = "view_school_rules"
	PermUpdateProfile   Permission = "update_profile"

	// Librarian capabilities.
	PermManageBooks     Permission = "manage_books"
	PermProcessLoans    Permission = "process_loans"
	PermTrackOverdue    Permission = "track_overdue"
	PermGenerateReports Permission = "generate_reports"

	// Administrative capabilities.
	PermSystemConfig      Permission = "system_config"
	PermAssignRoles       Permission = "assign_roles"
	PermViewAuditLogs     Permission = "view_audit_logs"
	PermEmergencyOverride Permission = "emergency_override"
	PermManageUsers       Permission = "manage_users"
	PermManageGrades      Permission = "manage_grades"
	PermManageRules       Permission = "manage_rules"
	PermManageStudents    Permission = "manage_students"
	PermManageLoans       Permission = "manage_loans"
	PermViewAnalytics     Permission = "view_analytics"

	// Moderation capabilities.
	PermCreateTickets   Permission = "create_tickets"
	PermViewOwnTickets  Permission = "view_own_tickets"
	PermModerateTickets Permission = "moderate_tickets"
	PermManageReports   Permission = "manage_reports"
	PermManageBans      Permission = "manage_bans"
)

// RolePermissions is the immutable role to permission-set mapping. Every role
// is enumerated explicitly, including admin: a new permission reaches a role
// only through a deliberate entry here, never through a default-allow rule.
var RolePermissions = map[Role][]Permission{
	RoleStudent: {
		PermViewOwnGrades,
		PermRequestBookLoan,
		PermViewSchoolRules,
		PermUpdateProfile,
		PermCreateTickets,
		PermViewOwnTickets,
	},
	RoleLibrarian: {
		PermManageBooks,
		PermProcessLoans,
		PermTrackOverdue,
		PermGenerateReports,
		PermViewSchoolRules,
		PermCreateTickets,
		PermViewOwnTickets,
	},
	RoleModerator: {
		PermViewSchoolRules,
		PermCreateTickets,
		PermViewOwnTickets,
		PermModerateTickets,
		PermManageReports,
		PermManageBans,
	},
	RoleAdmin: {
		PermSystemConfig,
		PermAssignRoles,
		PermViewAuditLogs,
		PermEmergencyOverride,
		PermManageUsers,
		PermManageGrades,
		PermManageRules,
		PermManageStudents,
		PermManageLoans,
		PermManageBooks,
		PermProcessLoans,
		PermTrackOverdue,
		PermGenerateReports,
		PermViewSchoolRules,
		PermViewAnalytics,
		PermCreateTickets,
		PermViewOwnTickets,
		PermModerateTickets,
		PermManageReports,
		PermManageBans,
	},
}

// Principal describes the authenticated actor of a request. It is rebuilt
// from token claims plus a user-store lookup on every request, never
// persisted.
type Principal struct {
	ID       int64
	Username string
	Role     Role
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in the request context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, nil when unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
