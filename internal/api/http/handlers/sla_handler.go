package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/clock"
	"github.com/spec-kit/ticket-desk/internal/sla"
	"github.com/spec-kit/ticket-desk/internal/worker"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// SLAHandler serves deadline previews and the scheduler hook.
type SLAHandler struct {
	engine      *sla.Engine
	sweeper     worker.Sweeper
	clock       clock.Clock
	development bool
}

// NewSLAHandler constructs handler. POST sweeps are accepted only in
// development.
func NewSLAHandler(engine *sla.Engine, sweeper worker.Sweeper, c clock.Clock, development bool) *SLAHandler {
	return &SLAHandler{engine: engine, sweeper: sweeper, clock: clock.OrSystem(c), development: development}
}

// Sweep GET|POST /cron/sla-check.
func (h *SLAHandler) Sweep(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost && !h.development {
		return apperrors.NewForbidden("manual sweeps are only allowed in development")
	}
	result, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      result,
		"timestamp": h.clock.Now().UTC(),
	})
}

// DueDate POST /sla/due-date.
func (h *SLAHandler) DueDate(c *fiber.Ctx) error {
	if _, err := currentPrincipal(c); err != nil {
		return err
	}
	var req dto.DueDateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	createdAt := h.clock.Now()
	if req.CreatedAt != "" {
		parsed, err := sla.ParseTimestamp(req.CreatedAt)
		if err != nil {
			return err
		}
		createdAt = parsed
	}
	kind := sla.KindResolution
	if req.Kind != "" {
		k, err := sla.ParseKind(req.Kind)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), map[string]any{"field": "kind"})
		}
		kind = k
	}

	due, err := h.engine.DueDate(createdAt, req.Priority, kind, req.SLA.Overrides())
	if err != nil {
		return err
	}
	status, err := h.engine.StatusAt(due, nil)
	if err != nil {
		return err
	}
	resp := dto.DueDateResponse{DueAt: due, Kind: kind, Status: status}
	if left := due.Sub(h.clock.Now()); left >= 0 {
		resp.Remaining = sla.FormatRemaining(int(left.Minutes()))
	}
	return c.JSON(fiber.Map{"data": resp})
}
