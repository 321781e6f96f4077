package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// EventType enumerates supported event identifiers. The values double as
// webhook event names.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.updated"
	EventTicketMessageAdded  EventType = "ticket.message.created"
	EventShiftStarted        EventType = "shift.started"
	EventShiftEnded          EventType = "shift.ended"
	EventSLAWarning          EventType = "sla.warning"
	EventSLAOverdue          EventType = "sla.overdue"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	OrgID     string    `json:"organization_id"`
	EntityID  string    `json:"entity_id"`
	ActorID   *string   `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"data"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, orgID, entityID string, actorID *string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		OrgID:     orgID,
		EntityID:  entityID,
		ActorID:   actorID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title            string                `json:"title"`
	Priority         domain.TicketPriority `json:"priority"`
	CreatedBy        string                `json:"created_by"`
	SLAResponseDueAt *time.Time            `json:"sla_response_due_at,omitempty"`
	SLADueAt         *time.Time            `json:"sla_due_at,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string `json:"message_id"`
	AuthorID    string `json:"author_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// ShiftPayload describes a shift boundary.
type ShiftPayload struct {
	ShiftID         string                    `json:"shift_id"`
	UserID          string                    `json:"user_id"`
	EmployeeName    string                    `json:"employee_name"`
	At              time.Time                 `json:"at"`
	Geo             *domain.GeolocationSample `json:"geo,omitempty"`
	DurationMinutes *int                      `json:"duration_minutes,omitempty"`
}

// SLAPayload describes a ticket approaching or past its resolution deadline.
type SLAPayload struct {
	Title          string                `json:"title"`
	Priority       domain.TicketPriority `json:"priority"`
	DueAt          time.Time             `json:"due_at"`
	HoursRemaining int                   `json:"hours_remaining"`
	Remaining      string                `json:"remaining"`
	// Status is the deadline classification at send time. A warning-level
	// notice may still report on-time when the deadline is inside the sweep
	// lookahead but outside the warning window.
	Status string `json:"sla_status"`
}
