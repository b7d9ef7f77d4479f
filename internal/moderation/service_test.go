package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadia-sms/acadia/internal/rbac"
	"github.com/acadia-sms/acadia/internal/shared"
)

type stubRepo struct {
	tickets  map[int64]*Ticket
	messages map[int64][]Message
	reports  map[int64]*Report
	bans     map[int64]*Ban
	roles    map[int64]string
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		tickets:  map[int64]*Ticket{},
		messages: map[int64][]Message{},
		reports:  map[int64]*Report{},
		bans:     map[int64]*Ban{},
		roles:    map[int64]string{},
		nextID:   1,
	}
}

func (s *stubRepo) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *stubRepo) CreateTicket(ctx context.Context, ticket *Ticket) error {
	ticket.ID = s.id()
	clone := *ticket
	s.tickets[ticket.ID] = &clone
	return nil
}

func (s *stubRepo) FindTicket(ctx context.Context, id int64) (*Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *stubRepo) ListTicketsByAuthor(ctx context.Context, authorID int64) ([]Ticket, error) {
	var out []Ticket
	for _, t := range s.tickets {
		if t.AuthorID == authorID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *stubRepo) ListTickets(ctx context.Context, status string) ([]Ticket, error) {
	var out []Ticket
	for _, t := range s.tickets {
		if status == "" || t.Status == status {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateTicketStatus(ctx context.Context, id int64, status string) error {
	t, ok := s.tickets[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *stubRepo) AssignTicket(ctx context.Context, id, assigneeID int64) error {
	t, ok := s.tickets[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.AssigneeID = &assigneeID
	t.Status = TicketInProgress
	return nil
}

func (s *stubRepo) CreateMessage(ctx context.Context, msg *Message) error {
	msg.ID = s.id()
	s.messages[msg.TicketID] = append(s.messages[msg.TicketID], *msg)
	return nil
}

func (s *stubRepo) ListMessages(ctx context.Context, ticketID int64) ([]Message, error) {
	return s.messages[ticketID], nil
}

func (s *stubRepo) CreateReport(ctx context.Context, report *Report) error {
	report.ID = s.id()
	clone := *report
	s.reports[report.ID] = &clone
	return nil
}

func (s *stubRepo) ListReports(ctx context.Context, status string) ([]Report, error) {
	var out []Report
	for _, r := range s.reports {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) ReviewReport(ctx context.Context, id, reviewerID int64, status string) error {
	r, ok := s.reports[id]
	if !ok || r.Status != ReportPending {
		return shared.ErrNotFound
	}
	r.Status = status
	r.ReviewedBy = &reviewerID
	return nil
}

func (s *stubRepo) CreateBan(ctx context.Context, ban *Ban) error {
	ban.ID = s.id()
	ban.CreatedAt = time.Now()
	clone := *ban
	s.bans[ban.ID] = &clone
	return nil
}

func (s *stubRepo) ListBans(ctx context.Context) ([]Ban, error) {
	var out []Ban
	for _, b := range s.bans {
		out = append(out, *b)
	}
	return out, nil
}

func (s *stubRepo) ActiveBan(ctx context.Context, userID int64, now time.Time) (*Ban, error) {
	for _, b := range s.bans {
		if b.UserID == userID && b.Active(now) {
			clone := *b
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) LiftBan(ctx context.Context, id int64, at time.Time) error {
	b, ok := s.bans[id]
	if !ok || b.LiftedAt != nil {
		return shared.ErrNotFound
	}
	b.LiftedAt = &at
	return nil
}

func (s *stubRepo) AccountRole(ctx context.Context, userID int64) (string, error) {
	role, ok := s.roles[userID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, userID int64) error { return nil }

type recordingAuditor struct {
	logs []shared.AuditLog
}

func (a *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(repo *stubRepo) *Service {
	svc := NewService(repo, allowAllLimiter{}, &recordingAuditor{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func student(id int64) *rbac.Principal {
	return &rbac.Principal{ID: id, Username: "student", Role: rbac.RoleStudent}
}

func moderator(id int64) *rbac.Principal {
	return &rbac.Principal{ID: id, Username: "mod", Role: rbac.RoleModerator}
}

func TestBannedUserCannotOpenTicket(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	repo.bans[99] = &Ban{ID: 99, UserID: 5}

	_, err := svc.OpenTicket(context.Background(), 5, "help", "please")
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestExpiredBanNoLongerBlocks(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	expired := svc.now().Add(-time.Hour)
	repo.bans[99] = &Ban{ID: 99, UserID: 5, ExpiresAt: &expired}

	_, err := svc.OpenTicket(context.Background(), 5, "help", "please")
	assert.NoError(t, err)
}

func TestBannedUserCannotPostMessage(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	ticket, err := svc.OpenTicket(context.Background(), 5, "help", "please")
	require.NoError(t, err)
	repo.bans[99] = &Ban{ID: 99, UserID: 5}

	_, err = svc.PostMessage(context.Background(), student(5), ticket.ID, "still there?")
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestThreadHiddenFromOtherStudents(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	ticket, err := svc.OpenTicket(context.Background(), 5, "help", "please")
	require.NoError(t, err)

	_, _, err = svc.TicketThread(context.Background(), student(6), ticket.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, _, err = svc.TicketThread(context.Background(), moderator(7), ticket.ID)
	assert.NoError(t, err)
}

func TestPostMessageOnClosedTicket(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	ticket, err := svc.OpenTicket(context.Background(), 5, "help", "please")
	require.NoError(t, err)
	repo.tickets[ticket.ID].Status = TicketClosed

	_, err = svc.PostMessage(context.Background(), student(5), ticket.ID, "hello?")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignTicketRequiresModeratorRole(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	repo.roles[8] = "student"
	repo.roles[9] = "moderator"

	ticket, err := svc.OpenTicket(context.Background(), 5, "help", "please")
	require.NoError(t, err)

	_, err = svc.AssignTicket(context.Background(), 1, ticket.ID, 8)
	assert.ErrorIs(t, err, shared.ErrValidation)

	assigned, err := svc.AssignTicket(context.Background(), 1, ticket.ID, 9)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, int64(9), *assigned.AssigneeID)
	assert.Equal(t, TicketInProgress, assigned.Status)
}

func TestFileReportRejectsUnknownTarget(t *testing.T) {
	svc := newTestService(newStubRepo())

	_, err := svc.FileReport(context.Background(), 5, "planet", 1, "bad")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestFileReportRespectsLimiter(t *testing.T) {
	repo := newStubRepo()
	auditor := &recordingAuditor{}
	svc := NewService(repo, limiterFunc(func(ctx context.Context, userID int64) error {
		return shared.ErrRateLimited
	}), auditor)

	_, err := svc.FileReport(context.Background(), 5, TargetUser, 6, "spam")
	assert.ErrorIs(t, err, shared.ErrRateLimited)
	assert.Empty(t, repo.reports)
}

type limiterFunc func(ctx context.Context, userID int64) error

func (f limiterFunc) Allow(ctx context.Context, userID int64) error { return f(ctx, userID) }

func TestReviewReportOnlyOnce(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	report, err := svc.FileReport(context.Background(), 5, TargetUser, 6, "spam")
	require.NoError(t, err)

	require.NoError(t, svc.ReviewReport(context.Background(), 9, report.ID, ReportDismissed))
	assert.ErrorIs(t, svc.ReviewReport(context.Background(), 9, report.ID, ReportReviewed), shared.ErrNotFound)
}

func TestIssueBanRejectsSelfAndPastExpiry(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	repo.roles[5] = "student"

	_, err := svc.IssueBan(context.Background(), 9, 9, "abuse", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	past := svc.now().Add(-time.Hour)
	_, err = svc.IssueBan(context.Background(), 9, 5, "abuse", &past)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLiftBanRestoresAccess(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	repo.roles[5] = "student"

	ban, err := svc.IssueBan(context.Background(), 9, 5, "abuse", nil)
	require.NoError(t, err)

	_, err = svc.OpenTicket(context.Background(), 5, "help", "please")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	require.NoError(t, svc.LiftBan(context.Background(), 9, ban.ID))
	_, err = svc.OpenTicket(context.Background(), 5, "help", "please")
	assert.NoError(t, err)
}
