// Package users holds the administrative account and student-profile
// endpoints.
package users

import "time"

// Account is the administrative view of a user row.
type Account struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentProfile links a user account to its school enrollment.
type StudentProfile struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	GradeLevel     int       `json:"grade_level"`
	ClassName      string    `json:"class_name"`
	EnrollmentDate time.Time `json:"enrollment_date"`
}

// Stats is the system overview returned to analytics viewers.
type Stats struct {
	TotalUsers   int64            `json:"total_users"`
	ActiveUsers  int64            `json:"active_users"`
	UsersByRole  map[string]int64 `json:"users_by_role"`
	TotalBooks   int64            `json:"total_books"`
	ActiveLoans  int64            `json:"active_loans"`
	OverdueLoans int64            `json:"overdue_loans"`
	OpenTickets  int64            `json:"open_tickets"`
}
