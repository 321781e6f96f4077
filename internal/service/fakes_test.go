package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/sla"
)

type fakeTickets struct {
	mu       sync.Mutex
	items    map[string]*domain.Ticket
	seq      int
	listErr  error
	statuses []domain.TicketStatus
}

func newFakeTickets(tickets ...domain.Ticket) *fakeTickets {
	f := &fakeTickets{items: map[string]*domain.Ticket{}}
	for i := range tickets {
		t := tickets[i]
		f.items[t.ID] = &t
	}
	return f
}

func (f *fakeTickets) Create(_ context.Context, t *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t.ID = fmt.Sprintf("ticket-%d", f.seq)
	t.UpdatedAt = t.CreatedAt
	cp := *t
	f.items[t.ID] = &cp
	return nil
}

func (f *fakeTickets) UpdateStatus(_ context.Context, t *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.items[t.ID]
	if !ok || stored.OrgID != t.OrgID {
		return pgx.ErrNoRows
	}
	*stored = *t
	f.statuses = append(f.statuses, t.Status)
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, orgID, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok || t.OrgID != orgID {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.items {
		if t.OrgID != filter.OrgID {
			continue
		}
		if filter.CreatedBy != nil && t.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTickets) ListSLACandidates(_ context.Context, dueBefore time.Time, _ int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Ticket
	for _, t := range f.items {
		if t.Status.IsTerminal() || t.SLADueAt == nil || t.SLADueAt.After(dueBefore) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SLADueAt.Before(*out[j].SLADueAt) })
	return out, nil
}

type fakeMessages struct {
	mu    sync.Mutex
	items []domain.TicketMessage
}

func (f *fakeMessages) Create(_ context.Context, m *domain.TicketMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = fmt.Sprintf("msg-%d", len(f.items)+1)
	f.items = append(f.items, *m)
	return nil
}

func (f *fakeMessages) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketMessage
	for _, m := range f.items {
		if m.TicketID == ticketID && (includeInternal || !m.IsInternal) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditLog
	err     error
}

func (f *fakeAudit) Create(_ context.Context, e *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeAudit) ListByEntity(_ context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditLog
	for _, e := range f.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeShifts enforces a single open shift per user, like the partial index.
type fakeShifts struct {
	mu     sync.Mutex
	shifts []*domain.Shift
}

func (f *fakeShifts) FindOpen(_ context.Context, orgID, userID string) (*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shifts {
		if s.OrgID == orgID && s.UserID == userID && s.Status == domain.ShiftStatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeShifts) Create(_ context.Context, shift *domain.Shift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shifts {
		if s.OrgID == shift.OrgID && s.UserID == shift.UserID && s.Status == domain.ShiftStatusOpen {
			return domain.ErrShiftAlreadyOpen
		}
	}
	shift.ID = fmt.Sprintf("shift-%d", len(f.shifts)+1)
	cp := *shift
	f.shifts = append(f.shifts, &cp)
	return nil
}

func (f *fakeShifts) Close(_ context.Context, shift *domain.Shift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shifts {
		if s.ID == shift.ID && s.Status == domain.ShiftStatusOpen {
			*s = *shift
			return nil
		}
	}
	return domain.ErrNoOpenShift
}

func (f *fakeShifts) List(_ context.Context, filter repository.ShiftFilter) ([]domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Shift
	for _, s := range f.shifts {
		if s.OrgID != filter.OrgID {
			continue
		}
		if filter.UserID != nil && s.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.held == nil {
		f.held = map[string]string{}
	}
	if _, ok := f.held[key]; ok {
		return false, nil
	}
	f.held[key] = token
	return true, nil
}

func (f *fakeLocker) Release(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] == token {
		delete(f.held, key)
		f.released++
	}
	return nil
}

type fakeGate struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (f *fakeGate) Claim(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.claimed == nil {
		f.claimed = map[string]bool{}
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeGate) Forget(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claimed, key)
	return nil
}

type sentSLA struct {
	TicketID string
	Level    sla.Status
	Payload  events.SLAPayload
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentSLA
	failOn map[string]error
}

func (f *fakeNotifier) NotifySLA(_ context.Context, t domain.Ticket, level sla.Status, p events.SLAPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[t.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentSLA{TicketID: t.ID, Level: level, Payload: p})
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ptr[T any](v T) *T { return &v }

var (
	admin = domain.Principal{UserID: "admin-1", OrgID: "org-1", Role: domain.RoleOrgAdmin, FullName: "Anna Admin"}
	user  = domain.Principal{UserID: "user-1", OrgID: "org-1", Role: domain.RoleUser, FullName: "Mario Rossi"}
	other = domain.Principal{UserID: "user-2", OrgID: "org-1", Role: domain.RoleUser, FullName: "Luigi Verdi"}
)
