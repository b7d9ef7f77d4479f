// Package moderation covers support tickets, user reports and bans.
package moderation

import "time"

// Ticket status values.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Report status values.
const (
	ReportPending   = "pending"
	ReportReviewed  = "reviewed"
	ReportDismissed = "dismissed"
)

// Report target kinds.
const (
	TargetUser    = "user"
	TargetTicket  = "ticket"
	TargetMessage = "message"
)

// Ticket is one support request.
type Ticket struct {
	ID         int64     `json:"id"`
	AuthorID   int64     `json:"author_id"`
	AssigneeID *int64    `json:"assignee_id,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is one reply on a ticket thread.
type Message struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Report flags a user, ticket or message for review.
type Report struct {
	ID         int64     `json:"id"`
	ReporterID int64     `json:"reporter_id"`
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	ReviewedBy *int64    `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ban blocks a user from the ticket system until lifted or expired.
type Ban struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Reason    string     `json:"reason"`
	IssuedBy  int64      `json:"issued_by"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	LiftedAt  *time.Time `json:"lifted_at,omitempty"`
}

// Active reports whether the ban still applies at the given instant.
func (b Ban) Active(now time.Time) bool {
	if b.LiftedAt != nil {
		return false
	}
	if b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
		return false
	}
	return true
}

func validTicketStatus(s string) bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

func validTargetType(s string) bool {
	switch s {
	case TargetUser, TargetTicket, TargetMessage:
		return true
	}
	return false
}
