package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "aperto"
	TicketStatusInProgress TicketStatus = "in_lavorazione"
	TicketStatusWaiting    TicketStatus = "in_attesa"
	TicketStatusResolved   TicketStatus = "risolto"
	TicketStatusClosed     TicketStatus = "chiuso"
)

// IsTerminal reports whether SLA clocks no longer apply to the status.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaiting, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "bassa"
	TicketPriorityMedium   TicketPriority = "media"
	TicketPriorityHigh     TicketPriority = "alta"
	TicketPriorityCritical TicketPriority = "critica"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	ExternalKey      string
	OrgID            string
	CreatedBy        string
	AssignedTo       *string
	ServiceID        *string
	Title            string
	Description      string
	FormData         map[string]any
	Status           TicketStatus
	Priority         TicketPriority
	SLAResponseDueAt *time.Time
	SLADueAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}
