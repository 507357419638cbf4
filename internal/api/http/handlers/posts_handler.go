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

// PostsHandler manages the post endpoints, served under both the /api/posts/
// and legacy /api/tasks/ prefixes.
type PostsHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	resolver *usernameResolver
}

// NewPostsHandler constructs handler.
func NewPostsHandler(postService *service.PostService, commentService *service.CommentService, resolver *usernameResolver) *PostsHandler {
	return &PostsHandler{posts: postService, comments: commentService, resolver: resolver}
}

// List GET /api/posts/.
func (h *PostsHandler) List(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	posts, err := h.posts.List(c.Context(), subject, parsePostQuery(c))
	if err != nil {
		return err
	}

	users := h.resolver.forRequest()
	items := make([]dto.PostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, h.postResponse(c, users, &posts[i], nil))
	}
	return c.JSON(items)
}

// Create POST /api/posts/.
func (h *PostsHandler) Create(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}

	var req dto.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	post, err := h.posts.Create(c.Context(), subject, service.PostCreateInput{
		Name:        req.Nazwa,
		Description: req.Opis,
		Status:      req.Status,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(h.postResponse(c, h.resolver.forRequest(), post, nil))
}

// Get GET /api/posts/:id/.
func (h *PostsHandler) Get(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	post, err := h.posts.Get(c.Context(), subject, id)
	if err != nil {
		return err
	}

	comments, err := h.comments.List(c.Context(), subject, service.CommentListQuery{PostID: &id})
	if err != nil {
		return err
	}
	return c.JSON(h.postResponse(c, h.resolver.forRequest(), post, comments))
}

// Update PUT/PATCH /api/posts/:id/.
func (h *PostsHandler) Update(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	// PUT is a full replace: the name must be present.
	if c.Method() == fiber.MethodPut && req.Nazwa == nil {
		return apperrors.NewValidationError("nazwa required", nil)
	}

	post, err := h.posts.Update(c.Context(), subject, id, service.PostUpdateInput{
		Name:        req.Nazwa,
		Description: req.Opis,
		Status:      req.Status,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		return err
	}
	return c.JSON(h.postResponse(c, h.resolver.forRequest(), post, nil))
}

// Delete DELETE /api/posts/:id/.
func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.Context(), subject, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// History GET /posts/:id/history/.
func (h *PostsHandler) History(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	entries, err := h.posts.History(c.Context(), subject, id)
	if err != nil {
		return err
	}

	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewHistoryEntryResponse(&entries[i]))
	}
	return c.JSON(items)
}

// ListComments GET /api/posts/:id/comments/.
func (h *PostsHandler) ListComments(c *fiber.Ctx) error {
	subject, ok := auth.SubjectFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	comments, err := h.comments.List(c.Context(), subject, service.CommentListQuery{PostID: &id})
	if err != nil {
		return err
	}
	return c.JSON(h.commentResponses(c, h.resolver.forRequest(), comments))
}

func (h *PostsHandler) postResponse(c *fiber.Ctx, users *userLookup, post *domain.Post, comments []domain.Comment) dto.PostResponse {
	resp := dto.PostResponse{
		ID:        post.ID,
		Nazwa:     post.Name,
		Opis:      post.Description,
		Status:    post.Status,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if post.OwnerID != nil {
		if owner, ok := users.lookup(c.Context(), *post.OwnerID); ok {
			resp.PrzypisanyUzytkownik = &owner
		}
	}
	if comments != nil {
		resp.Comments = h.commentResponses(c, users, comments)
	}
	return resp
}

func (h *PostsHandler) commentResponses(c *fiber.Ctx, users *userLookup, comments []domain.Comment) []dto.CommentResponse {
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		name := ""
		if author, ok := users.lookup(c.Context(), comments[i].AuthorID); ok {
			name = author.Username
		}
		items = append(items, dto.NewCommentResponse(&comments[i], name))
	}
	return items
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewNotFound("resource", nil)
	}
	return id, nil
}

func parsePostQuery(c *fiber.Ctx) service.PostListQuery {
	query := service.PostListQuery{}
	if raw := c.Query("status"); raw != "" {
		status := domain.PostStatus(raw)
		query.Status = &status
	}
	if raw := c.Query("id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			query.ID = &id
		}
	}
	owner := c.Query("owner")
	if owner == "" {
		// The legacy filter key still works.
		owner = c.Query("przypisany_uzytkownik")
	}
	if owner != "" {
		if id, err := strconv.ParseInt(owner, 10, 64); err == nil {
			query.OwnerID = &id
		}
	}
	if raw := c.Query("search"); raw != "" {
		search := raw
		query.Search = &search
	}
	page := parseIntDefault(c.Query("page"), 1)
	pageSize := parseIntDefault(c.Query("page_size"), 100)
	query.Offset = (page - 1) * pageSize
	query.Limit = pageSize
	return query
}

func parseIntDefault(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
