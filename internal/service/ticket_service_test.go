package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/sla"
	"github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// 2026-10-12 is a Monday.
var monday9 = time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTickets
	messages   *fakeMessages
	audit      *fakeAudit
	dispatcher *recordingDispatcher
	clock      *mutableClock
}

func newTicketFixture(t *testing.T, seed ...domain.Ticket) *ticketFixture {
	t.Helper()
	clk := &mutableClock{now: monday9}
	engine, err := sla.NewEngine(sla.DefaultTable(), sla.WithLocation(time.UTC), sla.WithClock(clk))
	require.NoError(t, err)

	f := &ticketFixture{
		tickets:    newFakeTickets(seed...),
		messages:   &fakeMessages{},
		audit:      &fakeAudit{},
		dispatcher: &recordingDispatcher{},
		clock:      clk,
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		MessageRepo: f.messages,
		AuditRepo:   f.audit,
		Engine:      engine,
		Dispatcher:  f.dispatcher,
		Clock:       clk,
	})
	return f
}

func TestCreateTicketStampsDeadlines(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), user, TicketCreateInput{
		Title:       "  Stampante guasta ",
		Description: "non stampa",
	})
	require.NoError(t, err)

	assert.Equal(t, "Stampante guasta", ticket.Title)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "org-1", ticket.OrgID)
	assert.Equal(t, "user-1", ticket.CreatedBy)
	assert.Regexp(t, `^TCK-[0-9A-F]{8}$`, ticket.ExternalKey)

	require.NotNil(t, ticket.SLAResponseDueAt)
	require.NotNil(t, ticket.SLADueAt)
	assert.True(t, time.Date(2026, 10, 12, 17, 0, 0, 0, time.UTC).Equal(*ticket.SLAResponseDueAt))
	// 48 working hours: five full days of nine hours, then three more.
	assert.True(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC).Equal(*ticket.SLADueAt))

	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.dispatcher.types())
	payload := f.dispatcher.events[0].Payload.(events.TicketCreatedPayload)
	assert.Equal(t, "Mario Rossi", payload.CreatedBy)
}

func TestCreateTicketCriticalRunsAroundTheClock(t *testing.T) {
	f := newTicketFixture(t)
	f.clock.now = time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC) // Saturday night

	ticket, err := f.svc.CreateTicket(context.Background(), user, TicketCreateInput{
		Title: "Server giù", Priority: domain.TicketPriorityCritical,
	})
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC).Equal(*ticket.SLAResponseDueAt))
	assert.True(t, time.Date(2026, 10, 18, 6, 30, 0, 0, time.UTC).Equal(*ticket.SLADueAt))
}

func TestCreateTicketOverrides(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), user, TicketCreateInput{
		Title:    "Contratto premium",
		Priority: domain.TicketPriorityHigh,
		SLA:      &sla.Overrides{ResolutionHours: ptr(2)},
	})
	require.NoError(t, err)
	assert.True(t, monday9.Add(2*time.Hour).Equal(*ticket.SLADueAt))
	assert.True(t, monday9.Add(4*time.Hour).Equal(*ticket.SLAResponseDueAt))
}

func TestCreateTicketRejectsBadInput(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.CreateTicket(context.Background(), user, TicketCreateInput{Title: "  "})
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)

	_, err = f.svc.CreateTicket(context.Background(), user, TicketCreateInput{Title: "x", Priority: "urgente"})
	assert.ErrorIs(t, err, sla.ErrInvalidPriority)

	_, err = f.svc.CreateTicket(context.Background(), user, TicketCreateInput{
		Title: "x", SLA: &sla.Overrides{ResponseHours: ptr(-1)},
	})
	assert.ErrorIs(t, err, sla.ErrInvalidSLAConfig)
	assert.Empty(t, f.tickets.items)
}

func seededTicket(id, createdBy string, due time.Time) domain.Ticket {
	return domain.Ticket{
		ID:               id,
		OrgID:            "org-1",
		CreatedBy:        createdBy,
		Title:            "Ticket " + id,
		Status:           domain.TicketStatusOpen,
		Priority:         domain.TicketPriorityMedium,
		SLAResponseDueAt: ptr(due.Add(-time.Hour)),
		SLADueAt:         ptr(due),
		CreatedAt:        monday9.Add(-24 * time.Hour),
	}
}

func TestListTicketsScopesByRoleAndClassifies(t *testing.T) {
	f := newTicketFixture(t,
		seededTicket("t-1", "user-1", monday9.Add(3*time.Hour)),
		seededTicket("t-2", "user-2", monday9.Add(30*time.Minute)),
		seededTicket("t-3", "user-1", monday9.Add(-time.Minute)),
	)

	views, err := f.svc.ListTickets(context.Background(), user, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "t-1", views[0].Ticket.ID)
	assert.Equal(t, sla.StatusOnTime, views[0].ResolutionStatus)
	assert.Equal(t, "3h", views[0].RemainingReadable)
	assert.Equal(t, sla.StatusOverdue, views[1].ResolutionStatus)
	assert.Equal(t, -1, *views[1].RemainingMinutes)
	assert.Empty(t, views[1].RemainingReadable)

	views, err = f.svc.ListTickets(context.Background(), admin, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, sla.StatusWarning, views[1].ResolutionStatus)
	assert.Equal(t, sla.StatusOverdue, views[1].ResponseStatus)
}

func TestGetTicketHidesInternalNotesFromUsers(t *testing.T) {
	f := newTicketFixture(t, seededTicket("t-1", "user-1", monday9.Add(time.Hour)))
	ctx := context.Background()

	_, err := f.svc.AddMessage(ctx, user, "t-1", "ciao", false)
	require.NoError(t, err)
	_, err = f.svc.AddMessage(ctx, admin, "t-1", "nota interna", true)
	require.NoError(t, err)

	_, msgs, err := f.svc.GetTicket(ctx, user, "t-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ciao", msgs[0].Body)

	_, msgs, err = f.svc.GetTicket(ctx, admin, "t-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, _, err = f.svc.GetTicket(ctx, other, "t-1")
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	_, _, err = f.svc.GetTicket(ctx, domain.Principal{UserID: "x", OrgID: "org-2", Role: domain.RoleOrgAdmin}, "t-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestAddMessageRules(t *testing.T) {
	f := newTicketFixture(t, seededTicket("t-1", "user-1", monday9.Add(time.Hour)))
	ctx := context.Background()

	_, err := f.svc.AddMessage(ctx, user, "t-1", "segreto", true)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	_, err = f.svc.AddMessage(ctx, user, "t-1", "   ", false)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)

	msg, err := f.svc.AddMessage(ctx, user, "t-1", " grazie ", false)
	require.NoError(t, err)
	assert.Equal(t, "grazie", msg.Body)
	assert.Equal(t, "org-1", msg.OrgID)
	assert.Equal(t, []events.EventType{events.EventTicketMessageAdded}, f.dispatcher.types())
}

func TestUpdateStatusLifecycle(t *testing.T) {
	f := newTicketFixture(t, seededTicket("t-1", "user-1", monday9.Add(2*time.Hour)))
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, user, "t-1", domain.TicketStatusInProgress)
	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FORBIDDEN", de.Code)

	view, err := f.svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, view.Ticket.ClosedAt)

	f.clock.Advance(time.Hour)
	view, err = f.svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, view.Ticket.ClosedAt)
	resolvedAt := *view.Ticket.ClosedAt
	assert.True(t, monday9.Add(time.Hour).Equal(resolvedAt))
	assert.Equal(t, sla.StatusWarning, view.ResolutionStatus)
	assert.Nil(t, view.RemainingMinutes)

	// classification stays frozen at the closing instant
	f.clock.Advance(5 * time.Hour)
	view, err = f.svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.True(t, resolvedAt.Equal(*view.Ticket.ClosedAt))
	assert.Equal(t, sla.StatusWarning, view.ResolutionStatus)

	_, err = f.svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusOpen)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CONFLICT", de.Code)

	_, err = f.svc.UpdateStatus(ctx, admin, "t-1", "archiviato")
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)

	require.Len(t, f.audit.entries, 3)
	assert.Equal(t, domain.AuditActionStatusChanged, f.audit.entries[2].Action)
	assert.Equal(t, domain.TicketStatusClosed, f.audit.entries[2].Meta["new_status"])
}

func TestUpdateStatusReopenClearsClosedAt(t *testing.T) {
	f := newTicketFixture(t, seededTicket("t-1", "user-1", monday9.Add(2*time.Hour)))
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusResolved)
	require.NoError(t, err)
	view, err := f.svc.UpdateStatus(ctx, admin, "t-1", domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, view.Ticket.ClosedAt)
	assert.NotNil(t, view.RemainingMinutes)
}

func TestUpdateStatusAuditFailure(t *testing.T) {
	f := newTicketFixture(t, seededTicket("t-1", "user-1", monday9.Add(2*time.Hour)))
	f.audit.err = errors.New("disk full")

	_, err := f.svc.UpdateStatus(context.Background(), admin, "t-1", domain.TicketStatusInProgress)
	assert.EqualError(t, err, "disk full")
}

func TestStringPreview(t *testing.T) {
	assert.Equal(t, "abc", stringPreview(" abc ", 10))
	assert.Equal(t, "àbcd...", stringPreview("àbcdefghij", 7))
	assert.Equal(t, "àb", stringPreview("àbcdefghij", 2))
}
