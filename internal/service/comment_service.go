package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// CommentService manages ticket threads.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// CommentDependencies bundles repositories for the comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Clock       func() time.Time
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CommentService{
		comments:   deps.CommentRepo,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        clock,
	}
}

// ListByTicket returns the thread oldest first, if the requester may see the ticket.
func (s *CommentService) ListByTicket(ctx context.Context, ticketID string, requester *domain.User) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	if !ticket.VisibleTo(requester) {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Create appends a comment. The author must be an agent or the ticket owner.
// Nothing is written when any check fails.
func (s *CommentService) Create(ctx context.Context, ticketID, authorID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"content": "required"})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	if !ticket.VisibleTo(author) {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}

	comment := &domain.Comment{
		TicketID:  ticket.ID,
		AuthorID:  author.ID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		// the ticket can vanish between the read and the insert
		return nil, notFoundOr(err, "ticket")
	}
	if comment.AuthorName == "" {
		comment.AuthorName = author.Name
		comment.AuthorRole = author.Role
	}

	publish(ctx, s.dispatcher, s.now, events.Event{
		Type:   events.EventCommentAdded,
		Ticket: ticketRef(ticket),
		Actor:  actorOf(author),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}
