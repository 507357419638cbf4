package dto

import (
	"time"

	"github.com/spec-kit/tracker-service/internal/domain"
)

// CreateCommentRequest payload; "post" is the parent id, matching the
// legacy serializer.
type CreateCommentRequest struct {
	Post    int64  `json:"post"`
	Content string `json:"content"`
}

// UpdateCommentRequest payload.
type UpdateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse is the comment representation.
type CommentResponse struct {
	ID        int64     `json:"id"`
	Post      int64     `json:"post"`
	Author    string    `json:"author"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCommentResponse maps a comment to its representation. The author's
// username is resolved by the handler.
func NewCommentResponse(c *domain.Comment, authorName string) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		Post:      c.PostID,
		Author:    authorName,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
