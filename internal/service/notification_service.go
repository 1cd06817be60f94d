package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
)

// NotificationQueue accepts notifications for asynchronous delivery. Enqueue
// must not block; it reports false when the notification was dropped.
type NotificationQueue interface {
	Enqueue(n domain.Notification) bool
}

// NotificationService turns domain events into notifications for ticket owners.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      NotificationQueue
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue NotificationQueue, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	priority := ""
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		priority = string(payload.Priority)
	}
	n.send(event, domain.NotificationTicketCreated,
		fmt.Sprintf("Ticket received: %s", event.Ticket.Title),
		fmt.Sprintf("We received your ticket %q (priority %s). An agent will pick it up shortly.", event.Ticket.Title, priority))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.send(event, domain.NotificationStatusChanged,
		fmt.Sprintf("Ticket %s: %s", humanStatus(payload.NewStatus), event.Ticket.Title),
		fmt.Sprintf("%s moved your ticket %q from %s to %s.", actorName(event.Actor), event.Ticket.Title,
			humanStatus(payload.OldStatus), humanStatus(payload.NewStatus)))
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	// owners are not told about their own replies
	if event.Actor.UserID == event.Ticket.OwnerID {
		return nil
	}
	preview := ""
	if payload, ok := event.Payload.(events.CommentAddedPayload); ok {
		preview = payload.BodyPreview
	}
	n.send(event, domain.NotificationCommentAdded,
		fmt.Sprintf("New reply on: %s", event.Ticket.Title),
		fmt.Sprintf("%s wrote: %s", actorName(event.Actor), preview))
	return nil
}

func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	n.send(event, domain.NotificationTicketDeleted,
		fmt.Sprintf("Ticket removed: %s", event.Ticket.Title),
		fmt.Sprintf("Your ticket %q was removed by %s.", event.Ticket.Title, actorName(event.Actor)))
	return nil
}

func (n *NotificationService) send(event events.Event, kind domain.NotificationKind, subject, body string) {
	if n.queue == nil {
		return
	}
	recipient := strings.TrimSpace(event.Ticket.OwnerEmail)
	if recipient == "" {
		n.logger.Debug("notification skipped: owner has no email",
			zap.String("ticket_id", event.Ticket.ID),
			zap.String("event_type", string(event.Type)))
		return
	}
	notification := domain.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		TicketID:  event.Ticket.ID,
		CreatedAt: event.Timestamp,
	}
	if !n.queue.Enqueue(notification) {
		n.logger.Warn("notification dropped",
			zap.String("ticket_id", event.Ticket.ID),
			zap.String("kind", string(kind)))
	}
}

func humanStatus(status domain.TicketStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

func actorName(actor events.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	if actor.Role == domain.RoleAgent {
		return "An agent"
	}
	return "Someone"
}
