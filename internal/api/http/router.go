package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Tickets    *handlers.TicketsHandler
	Shifts     *handlers.ShiftsHandler
	SLA        *handlers.SLAHandler
	Tokens     *auth.TokenManager
	Metrics    *observability.Metrics
	CronSecret string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	cron := api.Group("/cron", auth.RequireSharedSecret(cfg.CronSecret))
	cron.Get("/sla-check", cfg.SLA.Sweep)
	cron.Post("/sla-check", cfg.SLA.Sweep)

	protected := api.Group("", auth.Middleware(cfg.Tokens))

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", auth.RequireAdmin(), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/messages", cfg.Tickets.PostMessage)

	protected.Get("/commands/help", cfg.Tickets.CommandsHelp)

	protected.Get("/shifts", auth.RequireAdmin(), cfg.Shifts.List)
	protected.Get("/shifts/current", cfg.Shifts.Current)

	protected.Post("/sla/due-date", cfg.SLA.DueDate)
}
