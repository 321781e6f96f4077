package dto

import (
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	ServiceID   *string               `json:"service_id"`
	FormData    map[string]any        `json:"form_data"`
	SLA         *SLAOverridesRequest  `json:"sla"`
}

// SLAOverridesRequest replaces fields of the default policy for one ticket,
// as a service catalog entry would.
type SLAOverridesRequest struct {
	ResponseHours    *int  `json:"response_time_hours"`
	ResolutionHours  *int  `json:"resolution_time_hours"`
	WorkingHoursOnly *bool `json:"working_hours_only"`
	WorkingHours     *struct {
		Start int `json:"start"`
		End   int `json:"end"`
	} `json:"working_hours"`
	WorkingDays []int `json:"working_days"`
}

// Overrides converts the request into engine overrides.
func (r *SLAOverridesRequest) Overrides() *sla.Overrides {
	if r == nil {
		return nil
	}
	out := &sla.Overrides{
		ResponseHours:    r.ResponseHours,
		ResolutionHours:  r.ResolutionHours,
		WorkingHoursOnly: r.WorkingHoursOnly,
	}
	if r.WorkingHours != nil {
		out.WorkingHours = &sla.WorkingHours{Start: r.WorkingHours.Start, End: r.WorkingHours.End}
	}
	for _, d := range r.WorkingDays {
		out.WorkingDays = append(out.WorkingDays, sla.Weekday(d))
	}
	return out
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketSummary response.
type TicketSummary struct {
	ID               string                `json:"id"`
	ExternalKey      string                `json:"external_key"`
	Title            string                `json:"title"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	CreatedBy        string                `json:"created_by"`
	AssignedTo       *string               `json:"assigned_to"`
	SLAResponseDueAt *time.Time            `json:"sla_response_due_at"`
	SLADueAt         *time.Time            `json:"sla_due_at"`
	SLA              SLAStatusResponse     `json:"sla"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	ClosedAt         *time.Time            `json:"closed_at"`
}

// SLAStatusResponse classifies both deadlines of a ticket.
type SLAStatusResponse struct {
	Response         sla.Status `json:"response"`
	Resolution       sla.Status `json:"resolution"`
	RemainingMinutes *int       `json:"remaining_minutes"`
	Remaining        string     `json:"remaining,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	ServiceID   *string                 `json:"service_id"`
	FormData    map[string]any          `json:"form_data"`
	Messages    []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents thread message.
type TicketMessageResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateMessageRequest payload. Commands read the device position from
// Geo, or the reason it is missing from GeoError.
type CreateMessageRequest struct {
	Body       string           `json:"body"`
	IsInternal bool             `json:"is_internal"`
	Geo        *GeolocationBody `json:"geo"`
	GeoError   string           `json:"geo_error"`
}

// GeolocationBody is a browser-reported position.
type GeolocationBody struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Accuracy   float64    `json:"accuracy"`
	CapturedAt *time.Time `json:"captured_at"`
}

// CreateMessageResponse reports the stored message and any command outcome.
type CreateMessageResponse struct {
	Message      TicketMessageResponse `json:"message"`
	Command      string                `json:"command,omitempty"`
	CommandError string                `json:"command_error,omitempty"`
	Shift        *ShiftResponse        `json:"shift,omitempty"`
}
