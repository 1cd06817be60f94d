package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// TicketsHandler manages ticket endpoints for both roles.
type TicketsHandler struct {
	service *service.TicketService
	history *service.HistoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, historyService *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, history: historyService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), user.ID, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, dto.NewTicketResponse(ticket))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var query dto.TicketListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(query); err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext(), user, service.TicketListFilter{
		Status:   query.Status,
		Priority: query.Priority,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, dto.NewTicketResponses(tickets))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"), user)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, dto.NewTicketResponse(ticket))
}

// UpdateTicket PUT /tickets/:id. Only the status can change; a priority field is
// tolerated when it repeats the stored value.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	status := domain.TicketStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}
	if req.Priority != nil && user.IsAgent() {
		current, err := h.service.Get(c.UserContext(), c.Params("id"), user)
		if err != nil {
			return err
		}
		priority, valid := domain.ParsePriority(*req.Priority)
		if !valid || priority != current.Priority {
			return apperrors.NewValidationError("priority cannot be changed", map[string]any{"priority": *req.Priority})
		}
	}
	ticket, err := h.service.Transition(c.UserContext(), c.Params("id"), status, user)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), c.Params("id"), user); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"id": c.Params("id"), "deleted": true})
}

// TicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) TicketHistory(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.history.ListByTicket(c.UserContext(), c.Params("id"), user)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, dto.NewTicketHistoryResponses(entries))
}
