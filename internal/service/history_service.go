package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// HistoryService keeps the status audit trail of each ticket. Entries are
// written from ticket events, so a failed write never fails the transition.
type HistoryService struct {
	history repository.TicketHistoryRepository
	tickets repository.TicketRepository
}

// NewHistoryService constructs the service.
func NewHistoryService(history repository.TicketHistoryRepository, tickets repository.TicketRepository) *HistoryService {
	return &HistoryService{history: history, tickets: tickets}
}

// RegisterHandlers subscribes to ticket events.
func (h *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, h.recordCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, h.recordStatusChange)
}

// ListByTicket returns the trail oldest first, if the requester may see the ticket.
func (h *HistoryService) ListByTicket(ctx context.Context, ticketID string, requester *domain.User) ([]domain.TicketHistory, error) {
	ticket, err := h.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !ticket.VisibleTo(requester) {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	entries, err := h.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (h *HistoryService) recordCreated(ctx context.Context, event events.Event) error {
	return h.record(ctx, event, "", domain.TicketStatusOpen)
}

func (h *HistoryService) recordStatusChange(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return h.record(ctx, event, payload.OldStatus, payload.NewStatus)
}

func (h *HistoryService) record(ctx context.Context, event events.Event, from, to domain.TicketStatus) error {
	entry := &domain.TicketHistory{
		TicketID:   event.Ticket.ID,
		ActorID:    event.Actor.UserID,
		FromStatus: from,
		ToStatus:   to,
		CreatedAt:  event.Timestamp,
	}
	if err := h.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("record history for ticket %s: %w", event.Ticket.ID, err)
	}
	return nil
}
