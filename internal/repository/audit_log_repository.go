package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

// AuditLogRepository stores audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error)
}

type auditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository builds repository.
func NewAuditLogRepository(pool *pgxpool.Pool) AuditLogRepository {
	return &auditLogRepository{pool: pool}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	meta, err := json.Marshal(nonNilMap(entry.Meta))
	if err != nil {
		return fmt.Errorf("encode audit meta: %w", err)
	}
	const query = `
        INSERT INTO audit_logs (org_id, entity_type, entity_id, action, actor_id, meta)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.OrgID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.ActorID,
		meta,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	const query = `
        SELECT id, org_id, entity_type, entity_id, action, actor_id, meta, created_at
        FROM audit_logs WHERE entity_type=$1 AND entity_id=$2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditLog
	for rows.Next() {
		var (
			entry domain.AuditLog
			meta  []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.OrgID,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Action,
			&entry.ActorID,
			&meta,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("decode audit meta %s: %w", entry.ID, err)
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
