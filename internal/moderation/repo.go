package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acadia-sms/acadia/internal/platform/db"
	"github.com/acadia-sms/acadia/internal/shared"
)

// Repository abstracts moderation persistence.
type Repository interface {
	CreateTicket(ctx context.Context, ticket *Ticket) error
	FindTicket(ctx context.Context, id int64) (*Ticket, error)
	ListTicketsByAuthor(ctx context.Context, authorID int64) ([]Ticket, error)
	ListTickets(ctx context.Context, status string) ([]Ticket, error)
	UpdateTicketStatus(ctx context.Context, id int64, status string) error
	AssignTicket(ctx context.Context, id, assigneeID int64) error

	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, ticketID int64) ([]Message, error)

	CreateReport(ctx context.Context, report *Report) error
	ListReports(ctx context.Context, status string) ([]Report, error)
	ReviewReport(ctx context.Context, id, reviewerID int64, status string) error

	CreateBan(ctx context.Context, ban *Ban) error
	ListBans(ctx context.Context) ([]Ban, error)
	ActiveBan(ctx context.Context, userID int64, now time.Time) (*Ban, error)
	LiftBan(ctx context.Context, id int64, at time.Time) error

	AccountRole(ctx context.Context, userID int64) (string, error)
}

// PGRepository is the Postgres implementation of Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const ticketColumns = `id, author_id, assignee_id, subject, body, status, created_at, updated_at`

func (r *PGRepository) CreateTicket(ctx context.Context, ticket *Ticket) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO tickets (author_id, subject, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, created_at, updated_at`,
		ticket.AuthorID, ticket.Subject, ticket.Body, ticket.Status).
		Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *PGRepository) FindTicket(ctx context.Context, id int64) (*Ticket, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var t Ticket
	err := q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id).
		Scan(&t.ID, &t.AuthorID, &t.AssigneeID, &t.Subject, &t.Body, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return &t, nil
}

func (r *PGRepository) ListTicketsByAuthor(ctx context.Context, authorID int64) ([]Ticket, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE author_id = $1 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list own tickets: %w", err)
	}
	return collectTickets(rows)
}

func (r *PGRepository) ListTickets(ctx context.Context, status string) ([]Ticket, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = q.Query(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC`)
	} else {
		rows, err = q.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE status = $1 ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return collectTickets(rows)
}

func (r *PGRepository) UpdateTicketStatus(ctx context.Context, id int64, status string) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE tickets SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) AssignTicket(ctx context.Context, id, assigneeID int64) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE tickets SET assignee_id = $2, status = $3, updated_at = now()
		WHERE id = $1`, id, assigneeID, TicketInProgress)
	if err != nil {
		return fmt.Errorf("assign ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) CreateMessage(ctx context.Context, msg *Message) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO ticket_messages (ticket_id, author_id, body, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at`,
		msg.TicketID, msg.AuthorID, msg.Body).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *PGRepository) ListMessages(ctx context.Context, ticketID int64) ([]Message, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, ticket_id, author_id, body, created_at
		FROM ticket_messages WHERE ticket_id = $1
		ORDER BY created_at`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepository) CreateReport(ctx context.Context, report *Report) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO reports (reporter_id, target_type, target_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at`,
		report.ReporterID, report.TargetType, report.TargetID, report.Reason, report.Status).
		Scan(&report.ID, &report.CreatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *PGRepository) ListReports(ctx context.Context, status string) ([]Report, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var (
		rows pgx.Rows
		err  error
	)
	const cols = `id, reporter_id, target_type, target_id, reason, status, reviewed_by, created_at`
	if status == "" {
		rows, err = q.Query(ctx, `SELECT `+cols+` FROM reports ORDER BY created_at DESC`)
	} else {
		rows, err = q.Query(ctx, `SELECT `+cols+` FROM reports WHERE status = $1 ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.ReporterID, &rep.TargetType, &rep.TargetID, &rep.Reason, &rep.Status, &rep.ReviewedBy, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *PGRepository) ReviewReport(ctx context.Context, id, reviewerID int64, status string) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE reports SET status = $2, reviewed_by = $3
		WHERE id = $1 AND status = $4`,
		id, status, reviewerID, ReportPending)
	if err != nil {
		return fmt.Errorf("review report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) CreateBan(ctx context.Context, ban *Ban) error {
	q := db.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO bans (user_id, reason, issued_by, created_at, expires_at)
		VALUES ($1, $2, $3, now(), $4)
		RETURNING id, created_at`,
		ban.UserID, ban.Reason, ban.IssuedBy, ban.ExpiresAt).
		Scan(&ban.ID, &ban.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ban: %w", err)
	}
	return nil
}

func (r *PGRepository) ListBans(ctx context.Context) ([]Ban, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, user_id, reason, issued_by, created_at, expires_at, lifted_at
		FROM bans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bans: %w", err)
	}
	defer rows.Close()

	var out []Ban
	for rows.Next() {
		var b Ban
		if err := rows.Scan(&b.ID, &b.UserID, &b.Reason, &b.IssuedBy, &b.CreatedAt, &b.ExpiresAt, &b.LiftedAt); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) ActiveBan(ctx context.Context, userID int64, now time.Time) (*Ban, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var b Ban
	err := q.QueryRow(ctx, `
		SELECT id, user_id, reason, issued_by, created_at, expires_at, lifted_at
		FROM bans
		WHERE user_id = $1
		  AND lifted_at IS NULL
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
		LIMIT 1`, userID, now).
		Scan(&b.ID, &b.UserID, &b.Reason, &b.IssuedBy, &b.CreatedAt, &b.ExpiresAt, &b.LiftedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active ban: %w", err)
	}
	return &b, nil
}

func (r *PGRepository) LiftBan(ctx context.Context, id int64, at time.Time) error {
	q := db.QuerierFromContext(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE bans SET lifted_at = $2 WHERE id = $1 AND lifted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("lift ban: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) AccountRole(ctx context.Context, userID int64) (string, error) {
	q := db.QuerierFromContext(ctx, r.pool)
	var role string
	err := q.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("account role: %w", err)
	}
	return role, nil
}

func collectTickets(rows pgx.Rows) ([]Ticket, error) {
	defer rows.Close()
	var out []Ticket
	for rows.Next() {
		var t Ticket
		if err := rows.Scan(&t.ID, &t.AuthorID, &t.AssigneeID, &t.Subject, &t.Body, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
