package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Limiter throttles report submissions.
type Limiter interface {
	Allow(ctx context.Context, userID int64) error
}

// Auditor records moderation actions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies ticket, report and ban business logic.
type Service struct {
	repo    Repository
	limiter Limiter
	auditor Auditor
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, limiter Limiter, auditor Auditor) *Service {
	return &Service{repo: repo, limiter: limiter, auditor: auditor, now: time.Now}
}

func (s *Service) ensureNotBanned(ctx context.Context, userID int64) error {
	ban, err := s.repo.ActiveBan(ctx, userID, s.now().UTC())
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("banned until further notice (ban %d): %w", ban.ID, shared.ErrForbidden)
}

// OpenTicket creates a new support ticket. Banned users are refused.
func (s *Service) OpenTicket(ctx context.Context, authorID int64, subject, body string) (*Ticket, error) {
	if err := s.ensureNotBanned(ctx, authorID); err != nil {
		return nil, err
	}
	ticket := &Ticket{AuthorID: authorID, Subject: subject, Body: body, Status: TicketOpen}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// OwnTickets lists the caller's tickets.
func (s *Service) OwnTickets(ctx context.Context, authorID int64) ([]Ticket, error) {
	return s.repo.ListTicketsByAuthor(ctx, authorID)
}

// AllTickets lists every ticket, optionally filtered by status.
func (s *Service) AllTickets(ctx context.Context, status string) ([]Ticket, error) {
	if status != "" && !validTicketStatus(status) {
		return nil, fmt.Errorf("unknown ticket status %q: %w", status, shared.ErrValidation)
	}
	return s.repo.ListTickets(ctx, status)
}

// TicketThread returns a ticket with its messages. Non-moderators only see
// their own tickets.
func (s *Service) TicketThread(ctx context.Context, viewer *rbac.Principal, ticketID int64) (*Ticket, []Message, error) {
	ticket, err := s.repo.FindTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.canAccess(viewer, ticket); err != nil {
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// SetTicketStatus transitions a ticket.
func (s *Service) SetTicketStatus(ctx context.Context, actorID, ticketID int64, status string) (*Ticket, error) {
	if !validTicketStatus(status) {
		return nil, fmt.Errorf("unknown ticket status %q: %w", status, shared.ErrValidation)
	}
	if err := s.repo.UpdateTicketStatus(ctx, ticketID, status); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, actorID, "tickets.status", ticketID, map[string]any{"status": status}); err != nil {
		return nil, err
	}
	return s.repo.FindTicket(ctx, ticketID)
}

// AssignTicket hands a ticket to a moderator or admin.
func (s *Service) AssignTicket(ctx context.Context, actorID, ticketID, assigneeID int64) (*Ticket, error) {
	role, err := s.repo.AccountRole(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if role != string(rbac.RoleModerator) && role != string(rbac.RoleAdmin) {
		return nil, fmt.Errorf("assignee must be a moderator or admin: %w", shared.ErrValidation)
	}
	if err := s.repo.AssignTicket(ctx, ticketID, assigneeID); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, actorID, "tickets.assign", ticketID, map[string]any{"assignee_id": assigneeID}); err != nil {
		return nil, err
	}
	return s.repo.FindTicket(ctx, ticketID)
}

// PostMessage appends a reply to a ticket thread. Banned users are refused,
// and non-moderators may only post on their own tickets.
func (s *Service) PostMessage(ctx context.Context, author *rbac.Principal, ticketID int64, body string) (*Message, error) {
	if err := s.ensureNotBanned(ctx, author.ID); err != nil {
		return nil, err
	}
	ticket, err := s.repo.FindTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.canAccess(author, ticket); err != nil {
		return nil, err
	}
	if ticket.Status == TicketClosed {
		return nil, fmt.Errorf("ticket is closed: %w", shared.ErrValidation)
	}
	msg := &Message{TicketID: ticketID, AuthorID: author.ID, Body: body}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// FileReport records a new report, subject to the per-user rate limits.
func (s *Service) FileReport(ctx context.Context, reporterID int64, targetType string, targetID int64, reason string) (*Report, error) {
	if !validTargetType(targetType) {
		return nil, fmt.Errorf("unknown target type %q: %w", targetType, shared.ErrValidation)
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, reporterID); err != nil {
			return nil, err
		}
	}
	report := &Report{
		ReporterID: reporterID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Status:     ReportPending,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Reports lists reports, optionally filtered by status.
func (s *Service) Reports(ctx context.Context, status string) ([]Report, error) {
	return s.repo.ListReports(ctx, status)
}

// ReviewReport closes a pending report as reviewed or dismissed.
func (s *Service) ReviewReport(ctx context.Context, reviewerID, reportID int64, status string) error {
	if status != ReportReviewed && status != ReportDismissed {
		return fmt.Errorf("review status must be reviewed or dismissed: %w", shared.ErrValidation)
	}
	if err := s.repo.ReviewReport(ctx, reportID, reviewerID, status); err != nil {
		return err
	}
	return s.audit(ctx, reviewerID, "reports.review", reportID, map[string]any{"status": status})
}

// IssueBan blocks a user from the ticket system.
func (s *Service) IssueBan(ctx context.Context, actorID, userID int64, reason string, expiresAt *time.Time) (*Ban, error) {
	if userID == actorID {
		return nil, fmt.Errorf("cannot ban own account: %w", shared.ErrValidation)
	}
	if _, err := s.repo.AccountRole(ctx, userID); err != nil {
		return nil, err
	}
	if expiresAt != nil && !expiresAt.After(s.now().UTC()) {
		return nil, fmt.Errorf("expires_at must be in the future: %w", shared.ErrValidation)
	}
	ban := &Ban{UserID: userID, Reason: reason, IssuedBy: actorID, ExpiresAt: expiresAt}
	if err := s.repo.CreateBan(ctx, ban); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, actorID, "bans.issue", userID, map[string]any{"ban_id": ban.ID}); err != nil {
		return nil, err
	}
	return ban, nil
}

// Bans lists every ban record.
func (s *Service) Bans(ctx context.Context) ([]Ban, error) {
	return s.repo.ListBans(ctx)
}

// LiftBan ends a ban early.
func (s *Service) LiftBan(ctx context.Context, actorID, banID int64) error {
	if err := s.repo.LiftBan(ctx, banID, s.now().UTC()); err != nil {
		return err
	}
	return s.audit(ctx, actorID, "bans.lift", banID, nil)
}

func (s *Service) canAccess(viewer *rbac.Principal, ticket *Ticket) error {
	if viewer == nil {
		return shared.ErrUnauthenticated
	}
	if ticket.AuthorID == viewer.ID {
		return nil
	}
	if _, err := rbac.Require(viewer, rbac.PermModerateTickets); err != nil {
		return fmt.Errorf("not your ticket: %w", shared.ErrForbidden)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, actorID int64, action string, subjectID int64, meta map[string]any) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "moderation",
		EntityID: strconv.FormatInt(subjectID, 10),
		Meta:     meta,
	})
}
