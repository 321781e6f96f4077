package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/clock"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/sla"
)

// NotificationGate remembers which deadline notifications were sent.
type NotificationGate interface {
	Claim(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// SLANotifier delivers a deadline notification for a ticket.
type SLANotifier interface {
	NotifySLA(ctx context.Context, ticket domain.Ticket, level sla.Status, payload events.SLAPayload) error
}

// SweepResult summarizes one sweep. Notifications are sent at two levels:
// overdue for deadlines already past, warning for everything else inside the
// lookahead. The warning level is wider than the engine's warning status, so
// each notification also carries the engine status (SLAPayload.Status).
type SweepResult struct {
	TicketsProcessed  int `json:"tickets_processed"`
	NotificationsSent int `json:"notifications_sent"`
	Skipped           int `json:"skipped"`
	Failed            int `json:"failed"`
}

// SLASweepService finds tickets whose resolution deadline is near or past
// and notifies each of them once per deadline and level.
type SLASweepService struct {
	tickets   repository.TicketRepository
	audit     repository.AuditLogRepository
	engine    *sla.Engine
	gate      NotificationGate
	notifier  SLANotifier
	metrics   *observability.Metrics
	logger    *zap.Logger
	clock     clock.Clock
	lookahead time.Duration
	batchSize int
}

// SLASweepDependencies bundles collaborators for the sweep.
type SLASweepDependencies struct {
	TicketRepo repository.TicketRepository
	AuditRepo  repository.AuditLogRepository
	Engine     *sla.Engine
	Gate       NotificationGate
	Notifier   SLANotifier
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      clock.Clock
	Lookahead  time.Duration
	BatchSize  int
}

// NewSLASweepService constructs the service.
func NewSLASweepService(deps SLASweepDependencies) *SLASweepService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lookahead := deps.Lookahead
	if lookahead <= 0 {
		lookahead = 2 * time.Hour
	}
	return &SLASweepService{
		tickets:   deps.TicketRepo,
		audit:     deps.AuditRepo,
		engine:    deps.Engine,
		gate:      deps.Gate,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    logger,
		clock:     clock.OrSystem(deps.Clock),
		lookahead: lookahead,
		batchSize: deps.BatchSize,
	}
}

// Sweep runs one pass. A failure on one ticket is logged and counted; the
// pass continues with the next ticket.
func (s *SLASweepService) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	start := time.Now()
	now := s.clock.Now()

	candidates, err := s.tickets.ListSLACandidates(ctx, now.Add(s.lookahead), s.batchSize)
	if err != nil {
		return result, fmt.Errorf("list sla candidates: %w", err)
	}

	for _, ticket := range candidates {
		if ctx.Err() != nil {
			break
		}
		result.TicketsProcessed++
		sent, err := s.process(ctx, ticket, now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("sla sweep ticket failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		case sent:
			result.NotificationsSent++
		default:
			result.Skipped++
		}
	}

	s.metrics.RecordSweep(result.TicketsProcessed, result.Failed, time.Since(start))
	s.logger.Info("sla sweep completed",
		zap.Int("tickets_processed", result.TicketsProcessed),
		zap.Int("notifications_sent", result.NotificationsSent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, ctx.Err()
}

func (s *SLASweepService) process(ctx context.Context, ticket domain.Ticket, now time.Time) (bool, error) {
	if ticket.SLADueAt == nil || ticket.Status.IsTerminal() {
		return false, nil
	}
	due := *ticket.SLADueAt
	status, err := s.engine.Status(due, now)
	if err != nil {
		return false, err
	}
	// Everything inside the lookahead is announced as approaching.
	level := sla.StatusWarning
	action := domain.AuditActionSLAWarningSent
	if status == sla.StatusOverdue {
		level = sla.StatusOverdue
		action = domain.AuditActionSLAOverdueSent
	}

	key := fmt.Sprintf("%s:%s:%d", ticket.ID, level, due.Unix())
	claimed, err := s.gate.Claim(ctx, key)
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	if !claimed {
		return false, nil
	}

	minutes := int(due.Sub(now) / time.Minute)
	remaining := ""
	if minutes >= 0 {
		remaining = sla.FormatRemaining(minutes)
	}
	payload := events.SLAPayload{
		Title:          ticket.Title,
		Priority:       ticket.Priority,
		DueAt:          due,
		HoursRemaining: sla.HoursRemaining(due, now),
		Remaining:      remaining,
		Status:         string(status),
	}
	if err := s.notifier.NotifySLA(ctx, ticket, level, payload); err != nil {
		if ferr := s.gate.Forget(ctx, key); ferr != nil {
			s.logger.Warn("release notification claim", zap.String("key", key), zap.Error(ferr))
		}
		return false, fmt.Errorf("notify: %w", err)
	}
	s.metrics.RecordSLANotification(string(level))

	if s.audit != nil {
		entry := &domain.AuditLog{
			OrgID:      ticket.OrgID,
			EntityType: "ticket",
			EntityID:   ticket.ID,
			Action:     action,
			Meta: map[string]any{
				"hours_remaining": payload.HoursRemaining,
				"due_at":          due.UTC().Format(time.RFC3339),
				"level":           string(level),
				"sla_status":      string(status),
			},
		}
		if err := s.audit.Create(ctx, entry); err != nil {
			return true, fmt.Errorf("audit sla notification: %w", err)
		}
	}
	return true, nil
}
