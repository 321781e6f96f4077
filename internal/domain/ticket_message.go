package domain

import "time"

// TicketMessage is one entry in a ticket's conversation thread.
type TicketMessage struct {
	ID         string
	TicketID   string
	OrgID      string
	AuthorID   string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}
