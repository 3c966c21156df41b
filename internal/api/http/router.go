package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/cfrm-service/internal/api/http/handlers"
	"github.com/spec-kit/cfrm-service/internal/auth"
	"github.com/spec-kit/cfrm-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Reference      *handlers.ReferenceHandler
	Channels       *handlers.ChannelsHandler
	Messages       *handlers.MessagesHandler
	Webhooks       *handlers.WebhooksHandler
	Templates      *handlers.TemplatesHandler
	Import         *handlers.ImportHandler
	Stats          *handlers.StatsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Public surface: health probes, auth,
// reference data, ticket intake, feedback and provider webhooks. Everything
// else sits behind the bearer-token middleware with per-capability checks.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api.Get("/categories", cfg.Reference.Categories)
	api.Get("/priorities", cfg.Reference.Priorities)
	api.Get("/statuses", cfg.Reference.Statuses)

	// Public intake and the post-resolution survey.
	api.Post("/tickets", cfg.Tickets.Create)
	api.Post("/tickets/:id/feedback", cfg.Tickets.SubmitFeedback)

	// Provider callbacks authenticate with provider-side secrets, not JWTs.
	api.Post("/webhooks/:channelID", cfg.Webhooks.Receive)
	api.Get("/webhooks/:channelID", cfg.Webhooks.VerifyMeta)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	protected.Get("/auth/me", auth.RequireAuthenticated(), cfg.Users.Me)

	tickets := protected.Group("/tickets")
	tickets.Get("", auth.RequireCapability(domain.CapTicketRead), cfg.Tickets.List)
	tickets.Get("/:id", auth.RequireCapability(domain.CapTicketRead), cfg.Tickets.Get)
	tickets.Patch("/:id", auth.RequireCapability(domain.CapTicketWrite), cfg.Tickets.Update)
	tickets.Post("/:id/assign", auth.RequireCapability(domain.CapTicketAssign), cfg.Tickets.Assign)
	tickets.Post("/:id/close", auth.RequireCapability(domain.CapTicketWrite), cfg.Tickets.Close)
	tickets.Post("/:id/reopen", auth.RequireCapability(domain.CapTicketWrite), cfg.Tickets.Reopen)
	tickets.Post("/:id/escalate", auth.RequireCapability(domain.CapTicketEscalate), cfg.Tickets.Escalate)
	tickets.Post("/:id/recompute-sla", auth.RequireCapability(domain.CapTicketWrite), cfg.Tickets.RecomputeSLA)
	tickets.Get("/:id/logs", auth.RequireCapability(domain.CapTicketRead), cfg.Tickets.Logs)
	tickets.Post("/:id/responses", auth.RequireCapability(domain.CapResponseSend), cfg.Tickets.AddResponse)
	tickets.Get("/:id/responses", auth.RequireCapability(domain.CapTicketRead), cfg.Tickets.ListResponses)

	protected.Post("/tickets/import", auth.RequireCapability(domain.CapImportTickets), cfg.Import.ImportCSV)

	channels := protected.Group("/channels")
	channels.Get("", auth.RequireCapability(domain.CapTicketRead), cfg.Channels.List)
	channels.Get("/:id", auth.RequireCapability(domain.CapTicketRead), cfg.Channels.Get)
	channels.Patch("/:id", auth.RequireCapability(domain.CapChannelManage), cfg.Channels.Update)
	channels.Post("/:id/test-connection", auth.RequireCapability(domain.CapChannelManage), cfg.Channels.TestConnection)
	channels.Post("/:id/send-test-message", auth.RequireCapability(domain.CapChannelManage), cfg.Channels.SendTestMessage)
	channels.Get("/:id/stats", auth.RequireCapability(domain.CapReportsView), cfg.Channels.DayStats)
	channels.Get("/:id/templates", auth.RequireCapability(domain.CapTicketRead), cfg.Templates.ListByChannel)

	templates := protected.Group("/templates")
	templates.Post("", auth.RequireCapability(domain.CapTemplateManage), cfg.Templates.Create)
	templates.Get("/:id", auth.RequireCapability(domain.CapTicketRead), cfg.Templates.Get)
	templates.Patch("/:id", auth.RequireCapability(domain.CapTemplateManage), cfg.Templates.Update)

	messages := protected.Group("/messages")
	messages.Get("", auth.RequireCapability(domain.CapTicketRead), cfg.Messages.List)
	messages.Get("/:id", auth.RequireCapability(domain.CapTicketRead), cfg.Messages.Get)
	messages.Post("/:id/resend", auth.RequireCapability(domain.CapResponseSend), cfg.Messages.Resend)

	stats := protected.Group("/stats")
	stats.Get("/dashboard", auth.RequireCapability(domain.CapReportsView), cfg.Stats.Dashboard)
	stats.Get("/dispatch", auth.RequireCapability(domain.CapReportsView), cfg.Stats.Dispatch)
}
