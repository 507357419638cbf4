package events

import (
	"time"

	"github.com/spec-kit/tracker-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventPostCreated    EventType = "post_created"
	EventPostUpdated    EventType = "post_updated"
	EventPostDeleted    EventType = "post_deleted"
	EventCommentCreated EventType = "comment_created"
	EventCommentUpdated EventType = "comment_updated"
	EventCommentDeleted EventType = "comment_deleted"
)

// Event represents a domain event emitted by services after a committed
// mutation.
type Event struct {
	ID           string              `json:"id"`
	Type         EventType           `json:"type"`
	ResourceType domain.ResourceType `json:"resource_type"`
	ResourceID   int64               `json:"resource_id"`
	ActorID      *int64              `json:"actor_id,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	Payload      interface{}         `json:"payload"`
}

// PostChangedPayload payload.
type PostChangedPayload struct {
	Name      string            `json:"name"`
	OldStatus domain.PostStatus `json:"old_status,omitempty"`
	NewStatus domain.PostStatus `json:"new_status"`
}

// CommentChangedPayload payload.
type CommentChangedPayload struct {
	PostID      int64  `json:"post_id"`
	BodyPreview string `json:"body_preview"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
}
