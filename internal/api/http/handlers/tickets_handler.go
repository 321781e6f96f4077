package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/geo"
	"github.com/spec-kit/ticket-desk/internal/service"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket and chat endpoints.
type TicketsHandler struct {
	service *service.TicketService
	chat    *service.ChatService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, chat *service.ChatService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, chat: chat}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		ServiceID:   req.ServiceID,
		FormData:    req.FormData,
		SLA:         req.SLA.Overrides(),
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(h.service.View(*ticket))})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListTickets(c.UserContext(), principal, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(views))
	for i := range views {
		items = append(items, ticketSummary(views[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	view, msgs, err := h.service.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(*view, msgs)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.UpdateStatus(c.UserContext(), principal, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(*view)})
}

// PostMessage POST /tickets/:id/messages. Slash commands are executed and
// answered in the thread; failed commands still return 201 with the error
// reply as the stored message.
func (h *TicketsHandler) PostMessage(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", map[string]any{"field": "body"})
	}

	input := service.PostInput{
		Body:       req.Body,
		Internal:   req.IsInternal,
		GeoFailure: geo.Failure(req.GeoError),
	}
	if req.Geo != nil {
		sample := domain.GeolocationSample{Lat: req.Geo.Lat, Lon: req.Geo.Lon, Accuracy: req.Geo.Accuracy}
		if req.Geo.CapturedAt != nil {
			sample.CapturedAt = *req.Geo.CapturedAt
		}
		input.Geo = &sample
	}

	result, err := h.chat.Post(c.UserContext(), principal, c.Params("id"), input)
	if err != nil {
		return err
	}
	resp := dto.CreateMessageResponse{Message: ticketMessageResponse(result.Message)}
	if chatcmd.IsCommand(req.Body) {
		resp.Command = strings.ToLower(strings.Fields(req.Body)[0])
	}
	if result.CommandError != nil {
		resp.CommandError = chatcmd.Cause(result.CommandError)
	}
	if result.Shift != nil {
		shift := shiftResponse(*result.Shift)
		resp.Shift = &shift
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// CommandsHelp GET /commands/help.
func (h *TicketsHandler) CommandsHelp(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"help": chatcmd.HelpText()}})
}

func currentPrincipal(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if !status.Valid() {
				return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("q")); search != "" {
		filter.SearchTerm = &search
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	filter.Limit, filter.Offset = parsePage(c)
	return filter, nil
}

func parsePage(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(view service.TicketView) dto.TicketSummary {
	ticket := view.Ticket
	return dto.TicketSummary{
		ID:               ticket.ID,
		ExternalKey:      ticket.ExternalKey,
		Title:            ticket.Title,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		CreatedBy:        ticket.CreatedBy,
		AssignedTo:       ticket.AssignedTo,
		SLAResponseDueAt: ticket.SLAResponseDueAt,
		SLADueAt:         ticket.SLADueAt,
		SLA: dto.SLAStatusResponse{
			Response:         view.ResponseStatus,
			Resolution:       view.ResolutionStatus,
			RemainingMinutes: view.RemainingMinutes,
			Remaining:        view.RemainingReadable,
		},
		CreatedAt: ticket.CreatedAt,
		UpdatedAt: ticket.UpdatedAt,
		ClosedAt:  ticket.ClosedAt,
	}
}

func ticketDetail(view service.TicketView, messages []domain.TicketMessage) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, ticketMessageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(view),
		Description:   view.Ticket.Description,
		ServiceID:     view.Ticket.ServiceID,
		FormData:      view.Ticket.FormData,
		Messages:      msgs,
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:         msg.ID,
		AuthorID:   msg.AuthorID,
		Body:       msg.Body,
		IsInternal: msg.IsInternal,
		CreatedAt:  msg.CreatedAt,
	}
}
