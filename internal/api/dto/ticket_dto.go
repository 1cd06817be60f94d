package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority"    validate:"omitempty,oneof=low medium high LOW MEDIUM HIGH"`
}

// UpdateTicketRequest payload. Priority is accepted only when unchanged.
type UpdateTicketRequest struct {
	Status   string  `json:"status"   validate:"required"`
	Priority *string `json:"priority" validate:"omitempty"`
}

// TicketListQuery captures query filters. Page size 0 returns everything.
type TicketListQuery struct {
	Status   string `query:"status"`
	Priority string `query:"priority"`
	Page     int    `query:"page"      validate:"gte=0"`
	PageSize int    `query:"page_size" validate:"gte=0,lte=100"`
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	OwnerID     string                `json:"owner_id"`
	OwnerName   string                `json:"owner_name,omitempty"`
	OwnerEmail  string                `json:"owner_email,omitempty"`
	NextStatus  domain.TicketStatus   `json:"next_status,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	next, _ := ticket.Status.Next()
	return TicketResponse{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		OwnerID:     ticket.OwnerID,
		OwnerName:   ticket.OwnerName,
		OwnerEmail:  ticket.OwnerEmail,
		NextStatus:  next,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a slice, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string              `json:"id"`
	ActorID    string              `json:"actor_id,omitempty"`
	ActorName  string              `json:"actor_name,omitempty"`
	ActorRole  domain.Role         `json:"actor_role,omitempty"`
	FromStatus domain.TicketStatus `json:"from_status,omitempty"`
	ToStatus   domain.TicketStatus `json:"to_status"`
	CreatedAt  time.Time           `json:"created_at"`
}

// NewTicketHistoryResponses maps the trail, never returning nil.
func NewTicketHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			ActorRole:  e.ActorRole,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
