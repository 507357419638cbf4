package service

import (
	"time"

	"github.com/spec-kit/tracker-service/internal/domain"
	apperrors "github.com/spec-kit/tracker-service/pkg/util"
)

// canSee reports whether the subject's visible set includes a resource with
// the given owner. Staff and superusers see everything; everyone else sees
// only what is assigned to them.
func canSee(subject *domain.Subject, ownerID *int64) bool {
	if !subject.IsAuthenticated() {
		return false
	}
	if subject.IsStaff || subject.IsSuperuser {
		return true
	}
	return ownerID != nil && *ownerID == subject.ID
}

// denied maps an authorization Deny to the right boundary error: missing
// credentials and insufficient privilege must surface differently.
func denied(subject *domain.Subject) error {
	if !subject.IsAuthenticated() {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return apperrors.NewForbidden("insufficient privilege")
}

func snapshotPost(p *domain.Post) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"status":      string(p.Status),
		"owner_id":    ownerValue(p.OwnerID),
		"created_at":  p.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func snapshotComment(c *domain.Comment) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"post_id":    c.PostID,
		"author_id":  c.AuthorID,
		"content":    c.Content,
		"created_at": c.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": c.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func ownerValue(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// snapshotOwnerID recovers the owner id from a stored snapshot. JSONB round
// trips numbers as float64; in-process snapshots keep int64.
func snapshotOwnerID(snapshot map[string]any) *int64 {
	raw, ok := snapshot["owner_id"]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case int64:
		return &v
	case float64:
		id := int64(v)
		return &id
	case int:
		id := int64(v)
		return &id
	}
	return nil
}
