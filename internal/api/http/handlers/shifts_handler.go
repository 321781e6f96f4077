package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/service"
)

// ShiftsHandler exposes shift records.
type ShiftsHandler struct {
	service *service.ShiftService
}

// NewShiftsHandler constructs handler.
func NewShiftsHandler(shiftService *service.ShiftService) *ShiftsHandler {
	return &ShiftsHandler{service: shiftService}
}

// List GET /shifts.
func (h *ShiftsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	filter := service.ShiftListFilter{}
	if userID := c.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if status := c.Query("status"); status != "" {
		s := domain.ShiftStatus(status)
		filter.Status = &s
	}
	filter.Limit, filter.Offset = parsePage(c)

	shifts, err := h.service.List(c.UserContext(), principal, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ShiftResponse, 0, len(shifts))
	for _, s := range shifts {
		items = append(items, shiftResponse(s))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Current GET /shifts/current.
func (h *ShiftsHandler) Current(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	shift, err := h.service.Current(c.UserContext(), principal)
	if err != nil {
		return err
	}
	if shift == nil {
		return c.JSON(fiber.Map{"data": nil})
	}
	return c.JSON(fiber.Map{"data": shiftResponse(*shift)})
}

func shiftResponse(s domain.Shift) dto.ShiftResponse {
	resp := dto.ShiftResponse{
		ID:              s.ID,
		UserID:          s.UserID,
		EmployeeName:    s.EmployeeName,
		Status:          s.Status,
		StartAt:         s.StartAt,
		StartGeo:        s.StartGeo,
		EndAt:           s.EndAt,
		EndGeo:          s.EndGeo,
		DurationMinutes: s.DurationMinutes,
	}
	if s.DurationMinutes != nil {
		resp.Duration = chatcmd.FormatShiftDuration(*s.DurationMinutes)
	}
	return resp
}
