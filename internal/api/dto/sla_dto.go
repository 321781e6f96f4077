package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/sla"
)

// DueDateRequest asks for the deadline of a hypothetical ticket.
type DueDateRequest struct {
	CreatedAt string                `json:"created_at"`
	Priority  domain.TicketPriority `json:"priority"`
	Kind      string                `json:"kind"`
	SLA       *SLAOverridesRequest  `json:"sla"`
}

// DueDateResponse is the computed deadline and its status right now.
type DueDateResponse struct {
	DueAt     time.Time  `json:"due_at"`
	Kind      sla.Kind   `json:"kind"`
	Status    sla.Status `json:"status"`
	Remaining string     `json:"remaining,omitempty"`
}
