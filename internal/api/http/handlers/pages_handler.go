package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// PagesHandler returns the view models behind the browser pages. Access
// control and redirects happen in the session guard before these run.
type PagesHandler struct {
	tickets  *service.TicketService
	comments *service.CommentService
	history  *service.HistoryService
}

// NewPagesHandler constructs handler.
func NewPagesHandler(tickets *service.TicketService, comments *service.CommentService, history *service.HistoryService) *PagesHandler {
	return &PagesHandler{tickets: tickets, comments: comments, history: history}
}

// Login GET /app/login.
func (h *PagesHandler) Login(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, fiber.Map{"page": "login", "action": "/auth/login"})
}

// Register GET /app/register.
func (h *PagesHandler) Register(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, fiber.Map{
		"page":   "register",
		"action": "/auth/register",
		"roles":  []domain.Role{domain.RoleClient, domain.RoleAgent},
	})
}

// ClientDashboard GET /app/dashboard/client.
func (h *PagesHandler) ClientDashboard(c *fiber.Ctx) error {
	return h.dashboard(c, "client-dashboard")
}

// AgentDashboard GET /app/dashboard/agent.
func (h *PagesHandler) AgentDashboard(c *fiber.Ctx) error {
	return h.dashboard(c, "agent-dashboard")
}

func (h *PagesHandler) dashboard(c *fiber.Ctx, page string) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), user, service.TicketListFilter{})
	if err != nil {
		return err
	}
	counts := map[domain.TicketStatus]int{
		domain.TicketStatusOpen:       0,
		domain.TicketStatusInProgress: 0,
		domain.TicketStatusResolved:   0,
		domain.TicketStatusClosed:     0,
	}
	for _, ticket := range tickets {
		counts[ticket.Status]++
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"page":    page,
		"user":    dto.NewUserResponse(user),
		"counts":  counts,
		"tickets": dto.NewTicketResponses(tickets),
	})
}

// Ticket GET /app/tickets/:id.
func (h *PagesHandler) Ticket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"), user)
	if err != nil {
		return err
	}
	comments, err := h.comments.ListByTicket(c.UserContext(), ticket.ID, user)
	if err != nil {
		return err
	}
	history, err := h.history.ListByTicket(c.UserContext(), ticket.ID, user)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"page":           "ticket",
		"user":           dto.NewUserResponse(user),
		"ticket":         dto.NewTicketResponse(ticket),
		"comments":       dto.NewCommentResponses(comments),
		"history":        dto.NewTicketHistoryResponses(history),
		"can_transition": user.IsAgent() && !ticket.Status.Terminal(),
	})
}
