package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration. RateLimiter may be nil.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Tickets     *handlers.TicketsHandler
	Comments    *handlers.CommentsHandler
	Pages       *handlers.PagesHandler
	Guard       *auth.SessionGuard
	RateLimiter *RateLimiter
}

// RegisterRoutes wires HTTP routes. The session guard runs in front of every
// route and decides from the path alone whether a session is needed.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Guard.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	throttle := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.RateLimiter != nil {
		throttle = cfg.RateLimiter.Handler()
	}
	authGroup := app.Group("/auth")
	authGroup.Post("/login", throttle, cfg.Auth.Login)
	authGroup.Post("/register", throttle, cfg.Auth.Register)
	authGroup.Post("/logout", auth.RequireAuthenticated(), cfg.Auth.Logout)
	authGroup.Get("/me", auth.RequireAuthenticated(), cfg.Auth.Me)

	tickets := app.Group("/tickets", auth.RequireAuthenticated())
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.TicketHistory)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAgent), cfg.Tickets.DeleteTicket)

	comments := app.Group("/comments", auth.RequireAuthenticated())
	comments.Get("/:ticketId", cfg.Comments.ListComments)
	comments.Post("/:ticketId", cfg.Comments.CreateComment)

	app.Get(auth.LoginPage, cfg.Pages.Login)
	app.Get(auth.RegisterPage, cfg.Pages.Register)
	app.Get(auth.ClientDashboardPage, cfg.Pages.ClientDashboard)
	app.Get(auth.AgentDashboardPage, cfg.Pages.AgentDashboard)
	app.Get(auth.TicketPagePrefix+":id", cfg.Pages.Ticket)
}
