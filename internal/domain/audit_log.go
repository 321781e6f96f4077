package domain

import "time"

// AuditAction names an audited operation.
type AuditAction string

const (
	AuditActionSLAWarningSent AuditAction = "sla_warning_sent"
	AuditActionSLAOverdueSent AuditAction = "sla_overdue_sent"
	AuditActionStatusChanged  AuditAction = "status_changed"
)

// AuditLog is an immutable audit trail entry.
type AuditLog struct {
	ID         string
	OrgID      string
	EntityType string
	EntityID   string
	Action     AuditAction
	ActorID    *string
	Meta       map[string]any
	CreatedAt  time.Time
}
