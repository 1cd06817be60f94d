package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateCommentRequest payload. Older clients send the text as "message".
type CreateCommentRequest struct {
	Content string `json:"content"`
	Message string `json:"message"`
}

// Text returns content, falling back to message.
func (r CreateCommentRequest) Text() string {
	if strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return r.Message
}

// CommentResponse is the API view of a comment.
type CommentResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticket_id"`
	AuthorID   string      `json:"author_id"`
	AuthorName string      `json:"author_name"`
	AuthorRole domain.Role `json:"author_role"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		TicketID:   comment.TicketID,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		AuthorRole: comment.AuthorRole,
		Content:    comment.Content,
		CreatedAt:  comment.CreatedAt,
	}
}

// NewCommentResponses maps a thread, never returning nil.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentResponse(&comments[i]))
	}
	return out
}
