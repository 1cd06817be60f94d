package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// CommentsHandler serves ticket threads.
type CommentsHandler struct {
	service *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{service: commentService}
}

// ListComments GET /comments/:ticketId.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListByTicket(c.UserContext(), c.Params("ticketId"), user)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, dto.NewCommentResponses(comments))
}

// CreateComment POST /comments/:ticketId.
func (h *CommentsHandler) CreateComment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.Create(c.UserContext(), c.Params("ticketId"), user.ID, req.Text())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, dto.NewCommentResponse(comment))
}
