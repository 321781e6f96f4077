package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// TicketMessageRepository stores the conversation thread of a ticket,
// including replies produced by chat commands.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

const messageColumns = `id, ticket_id, org_id, author_id, body, is_internal, created_at`

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO ticket_messages (ticket_id, org_id, author_id, body, is_internal)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		msg.TicketID, msg.OrgID, msg.AuthorID, msg.Body, msg.IsInternal)
	return row.Scan(&msg.ID, &msg.CreatedAt)
}

// ListByTicket returns the thread oldest first. Internal notes are hidden
// unless includeInternal is set.
func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM ticket_messages
		 WHERE ticket_id = $1 AND ($2 OR NOT is_internal)
		 ORDER BY created_at, id`,
		ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTicketMessage)
}

func scanTicketMessage(row pgx.CollectableRow) (domain.TicketMessage, error) {
	var m domain.TicketMessage
	err := row.Scan(&m.ID, &m.TicketID, &m.OrgID, &m.AuthorID, &m.Body, &m.IsInternal, &m.CreatedAt)
	return m, err
}
