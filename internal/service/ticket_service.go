package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload. Priority may be empty.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
}

// TicketListFilter narrows listings. PageSize 0 disables pagination.
type TicketListFilter struct {
	Status   string
	Priority string
	Page     int
	PageSize int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        clock,
	}
}

// Create files a new ticket owned by ownerID. Tickets always start open.
func (s *TicketService) Create(ctx context.Context, ownerID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	} else if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		details["title"] = fmt.Sprintf("at most %d characters", domain.MaxTitleLength)
	}
	if description == "" {
		details["description"] = "required"
	}
	priority, ok := domain.ParsePriority(input.Priority)
	if !ok {
		details["priority"] = "must be low, medium or high"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if owner.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("only clients can file tickets")
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		OwnerID:     owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	ticket.OwnerName = owner.Name
	ticket.OwnerEmail = owner.Email

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketCreated,
		Ticket:  ticketRef(ticket),
		Actor:   actorOf(owner),
		Payload: events.TicketCreatedPayload{Priority: ticket.Priority},
	})
	return ticket, nil
}

// Get returns a ticket the requester may see. Clients asking for someone
// else's ticket get Forbidden, not NotFound.
func (s *TicketService) Get(ctx context.Context, id string, requester *domain.User) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !ticket.VisibleTo(requester) {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	return ticket, nil
}

// List returns every ticket for agents and only their own for clients.
func (s *TicketService) List(ctx context.Context, requester *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if requester == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	repoFilter := repository.TicketFilter{}
	if requester.Role != domain.RoleAgent {
		ownerID := requester.ID
		repoFilter.OwnerID = &ownerID
	}
	if filter.Status != "" {
		status := domain.TicketStatus(strings.ToLower(filter.Status))
		if !status.Valid() {
			return nil, apperrors.NewValidationError("unknown status filter", map[string]any{"status": filter.Status})
		}
		repoFilter.Status = &status
	}
	if filter.Priority != "" {
		priority, ok := domain.ParsePriority(filter.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("unknown priority filter", map[string]any{"priority": filter.Priority})
		}
		repoFilter.Priority = &priority
	}
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		repoFilter.Limit = filter.PageSize
		repoFilter.Offset = (page - 1) * filter.PageSize
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// Transition moves a ticket one step forward. Only agents may do it and only
// along open -> in_progress -> resolved -> closed.
func (s *TicketService) Transition(ctx context.Context, id string, newStatus domain.TicketStatus, requester *domain.User) (*domain.Ticket, error) {
	if !requester.IsAgent() {
		return nil, apperrors.NewForbidden("only agents can change ticket status")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !domain.CanTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	ticket.UpdatedAt = s.now().UTC()
	if err := s.tickets.UpdateStatus(ctx, ticket, oldStatus); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.staleTransition(ctx, id, newStatus)
		}
		return nil, notFoundOr(err, "ticket")
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketStatusChanged,
		Ticket: ticketRef(ticket),
		Actor:  actorOf(requester),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// Delete hard-deletes a ticket and its comments. Agents only.
func (s *TicketService) Delete(ctx context.Context, id string, requester *domain.User) error {
	if !requester.IsAgent() {
		return apperrors.NewForbidden("only agents can delete tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "ticket")
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		return notFoundOr(err, "ticket")
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketDeleted,
		Ticket: ticketRef(ticket),
		Actor:  actorOf(requester),
	})
	return nil
}

// staleTransition explains a lost compare-and-set against the current row.
func (s *TicketService) staleTransition(ctx context.Context, id string, newStatus domain.TicketStatus) error {
	current, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "ticket")
	}
	return apperrors.NewInvalidTransition(string(current.Status), string(newStatus))
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.now, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func ticketRef(ticket *domain.Ticket) events.TicketRef {
	return events.TicketRef{
		ID:         ticket.ID,
		Title:      ticket.Title,
		OwnerID:    ticket.OwnerID,
		OwnerEmail: ticket.OwnerEmail,
	}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role, Name: user.Name}
}

// notFoundOr maps the repository's not-found sentinels to a NotFound domain
// error and wraps everything else as a store failure.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrReference) {
		return apperrors.NewNotFound(resource, nil)
	}
	return fmt.Errorf("load %s: %w", resource, err)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
