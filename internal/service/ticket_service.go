package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-desk/internal/clock"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/sla"
	"github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	audit      repository.AuditLogRepository
	engine     *sla.Engine
	dispatcher events.Dispatcher
	clock      clock.Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	AuditRepo   repository.AuditLogRepository
	Engine      *sla.Engine
	Dispatcher  events.Dispatcher
	Clock       clock.Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	ServiceID   *string
	FormData    map[string]any
	// SLA optionally replaces fields of the default policy for this ticket.
	SLA *sla.Overrides
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketView is a ticket with its deadlines classified.
type TicketView struct {
	Ticket            domain.Ticket
	ResponseStatus    sla.Status
	ResolutionStatus  sla.Status
	RemainingMinutes  *int
	RemainingReadable string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		audit:      deps.AuditRepo,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		clock:      clock.OrSystem(deps.Clock),
	}
}

// CreateTicket creates a ticket and stamps its response and resolution deadlines.
func (s *TicketService) CreateTicket(ctx context.Context, p domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	now := s.clock.Now()
	responseDue, err := s.engine.DueDate(now, priority, sla.KindResponse, input.SLA)
	if err != nil {
		return nil, err
	}
	resolutionDue, err := s.engine.DueDate(now, priority, sla.KindResolution, input.SLA)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ExternalKey:      generateTicketKey(),
		OrgID:            p.OrgID,
		CreatedBy:        p.UserID,
		ServiceID:        input.ServiceID,
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		FormData:         input.FormData,
		Status:           domain.TicketStatusOpen,
		Priority:         priority,
		SLAResponseDueAt: &responseDue,
		SLADueAt:         &resolutionDue,
		CreatedAt:        now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.New(events.EventTicketCreated, ticket.OrgID, ticket.ID, &p.UserID, now,
		events.TicketCreatedPayload{
			Title:            ticket.Title,
			Priority:         ticket.Priority,
			CreatedBy:        p.FullName,
			SLAResponseDueAt: ticket.SLAResponseDueAt,
			SLADueAt:         ticket.SLADueAt,
		}))
	return ticket, nil
}

// ListTickets returns the caller's tickets, or every ticket of the
// organization for admins.
func (s *TicketService) ListTickets(ctx context.Context, p domain.Principal, filter TicketListFilter) ([]TicketView, error) {
	repoFilter := repository.TicketFilter{
		OrgID:       p.OrgID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !p.Role.IsAdmin() {
		repoFilter.CreatedBy = &p.UserID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, s.View(t))
	}
	return views, nil
}

// GetTicket fetches a ticket with the messages the caller may see.
func (s *TicketService) GetTicket(ctx context.Context, p domain.Principal, ticketID string) (*TicketView, []domain.TicketMessage, error) {
	ticket, err := s.authorizedTicket(ctx, p, ticketID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID, p.Role.IsAdmin())
	if err != nil {
		return nil, nil, err
	}
	view := s.View(*ticket)
	return &view, msgs, nil
}

// AddMessage appends a message to a ticket thread. Only admins write
// internal notes.
func (s *TicketService) AddMessage(ctx context.Context, p domain.Principal, ticketID, body string, internal bool) (*domain.TicketMessage, error) {
	ticket, err := s.authorizedTicket(ctx, p, ticketID)
	if err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, p, ticket, body, internal)
}

func (s *TicketService) appendMessage(ctx context.Context, p domain.Principal, ticket *domain.Ticket, body string, internal bool) (*domain.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errorutil.NewValidationError("message body is required", map[string]any{"field": "body"})
	}
	if err := checkInternal(p, internal); err != nil {
		return nil, err
	}
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		OrgID:      ticket.OrgID,
		AuthorID:   p.UserID,
		Body:       body,
		IsInternal: internal,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.New(events.EventTicketMessageAdded, ticket.OrgID, ticket.ID, &p.UserID, s.clock.Now(),
		events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			AuthorID:    msg.AuthorID,
			IsInternal:  msg.IsInternal,
			BodyPreview: stringPreview(msg.Body, 120),
		}))
	return msg, nil
}

// UpdateStatus moves a ticket along its lifecycle. Terminal states stamp
// ClosedAt, which then freezes the SLA classification.
func (s *TicketService) UpdateStatus(ctx context.Context, p domain.Principal, ticketID string, newStatus domain.TicketStatus) (*TicketView, error) {
	if !p.Role.IsAdmin() {
		return nil, errorutil.NewForbidden("only administrators can change ticket status")
	}
	if !newStatus.Valid() {
		return nil, errorutil.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.tickets.GetByID(ctx, p.OrgID, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if !isValidTransition(oldStatus, newStatus) {
		return nil, errorutil.NewConflict("invalid status transition", map[string]any{
			"from": oldStatus,
			"to":   newStatus,
		})
	}

	now := s.clock.Now()
	switch {
	case newStatus.IsTerminal() && ticket.ClosedAt == nil:
		ticket.ClosedAt = &now
	case !newStatus.IsTerminal():
		ticket.ClosedAt = nil
	}
	ticket.Status = newStatus
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordAudit(ctx, &domain.AuditLog{
		OrgID:      ticket.OrgID,
		EntityType: "ticket",
		EntityID:   ticket.ID,
		Action:     domain.AuditActionStatusChanged,
		ActorID:    &p.UserID,
		Meta:       map[string]any{"old_status": oldStatus, "new_status": newStatus},
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.New(events.EventTicketStatusChanged, ticket.OrgID, ticket.ID, &p.UserID, now,
		events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus}))
	view := s.View(*ticket)
	return &view, nil
}

// View classifies both deadlines of t against its closing instant, or now.
func (s *TicketService) View(t domain.Ticket) TicketView {
	view := TicketView{Ticket: t}
	completedAt := t.ClosedAt
	if t.SLAResponseDueAt != nil {
		view.ResponseStatus, _ = s.engine.StatusAt(*t.SLAResponseDueAt, completedAt)
	}
	if t.SLADueAt != nil {
		view.ResolutionStatus, _ = s.engine.StatusAt(*t.SLADueAt, completedAt)
		if completedAt == nil {
			minutes := int(t.SLADueAt.Sub(s.clock.Now()) / time.Minute)
			view.RemainingMinutes = &minutes
			if minutes >= 0 {
				view.RemainingReadable = sla.FormatRemaining(minutes)
			}
		}
	}
	return view
}

func (s *TicketService) authorizedTicket(ctx context.Context, p domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, p.OrgID, ticketID)
	if err != nil {
		return nil, err
	}
	if !p.Role.IsAdmin() && ticket.CreatedBy != p.UserID {
		return nil, errorutil.NewForbidden("access denied")
	}
	return ticket, nil
}

func (s *TicketService) recordAudit(ctx context.Context, entry *domain.AuditLog) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func checkInternal(p domain.Principal, internal bool) error {
	if internal && !p.Role.IsAdmin() {
		return errorutil.NewForbidden("only administrators can post internal notes")
	}
	return nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusWaiting, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusWaiting, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusWaiting:    {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
