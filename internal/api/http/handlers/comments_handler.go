package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-service/internal/api/dto"
	"github.com/spec-kit/tracker-service/internal/auth"
	"github.com/spec-kit/tracker-service/internal/domain"
	"github.com/spec-kit/tracker-service/internal/service"
	apperrors "github.com/spec-kit/tracker-service/pkg/util"
)

// CommentsHandler manages the comment endpoints.
type CommentsHandler struct {
	comments *service.CommentService
	resolver *usernameResolver
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService, resolver *usernameResolver) *CommentsHandler {
	return &CommentsHandler{comments: commentService, resolver: resolver}
}

// List GET /api/comments/.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	query := service.CommentListQuery{}
	if raw := c.Query("post"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			query.PostID = &id
		}
	}
	query.Limit = parseIntDefault(c.Query("page_size"), 100)
	query.Offset = (parseIntDefault(c.Query("page"), 1) - 1) * query.Limit

	comments, err := h.comments.List(c.Context(), subject, query)
	if err != nil {
		return err
	}

	users := h.resolver.forRequest()
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		name := ""
		if author, ok := users.lookup(c.Context(), comments[i].AuthorID); ok {
			name = author.Username
		}
		items = append(items, dto.NewCommentResponse(&comments[i], name))
	}
	return c.JSON(items)
}

// Create POST /api/comments/.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Post <= 0 {
		return apperrors.NewValidationError("post required", nil)
	}

	comment, err := h.comments.Create(c.Context(), subject, service.CommentCreateInput{
		PostID:  req.Post,
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(h.response(c, comment))
}

// Get GET /api/comments/:id/.
func (h *CommentsHandler) Get(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	comment, err := h.comments.Get(c.Context(), subject, id)
	if err != nil {
		return err
	}
	return c.JSON(h.response(c, comment))
}

// Update PUT/PATCH /api/comments/:id/.
func (h *CommentsHandler) Update(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	comment, err := h.comments.Update(c.Context(), subject, id, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(h.response(c, comment))
}

// Delete DELETE /api/comments/:id/.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.Context(), subject, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *CommentsHandler) response(c *fiber.Ctx, comment *domain.Comment) dto.CommentResponse {
	name := ""
	if author, ok := h.resolver.forRequest().lookup(c.Context(), comment.AuthorID); ok {
		name = author.Username
	}
	return dto.NewCommentResponse(comment, name)
}
