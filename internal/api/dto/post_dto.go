package dto

import (
	"time"

	"github.com/spec-kit/tracker-service/internal/domain"
)

// CreatePostRequest payload. The field names are the legacy Polish API
// surface; both generations' clients send them.
type CreatePostRequest struct {
	Nazwa     string             `json:"nazwa"`
	Opis      string             `json:"opis"`
	Status    *domain.PostStatus `json:"status"`
	OwnerID   *int64             `json:"przypisany_uzytkownik_id"`
}

// UpdatePostRequest payload; nil fields are untouched on PATCH.
type UpdatePostRequest struct {
	Nazwa   *string            `json:"nazwa"`
	Opis    *string            `json:"opis"`
	Status  *domain.PostStatus `json:"status"`
	OwnerID *int64             `json:"przypisany_uzytkownik_id"`
}

// PostResponse is the post representation.
type PostResponse struct {
	ID                   int64             `json:"id"`
	Nazwa                string            `json:"nazwa"`
	Opis                 string            `json:"opis"`
	Status               domain.PostStatus `json:"status"`
	PrzypisanyUzytkownik *UserResponse     `json:"przypisany_uzytkownik"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Comments             []CommentResponse `json:"comments,omitempty"`
}

// HistoryEntryResponse mirrors the legacy history serializer: the snapshot
// fields flattened to the top level plus the history_* metadata.
type HistoryEntryResponse map[string]any

// NewHistoryEntryResponse flattens one audit entry.
func NewHistoryEntryResponse(entry *domain.HistoryEntry) HistoryEntryResponse {
	resp := make(HistoryEntryResponse, len(entry.Snapshot)+4)
	for k, v := range entry.Snapshot {
		resp[k] = v
	}
	resp["history_id"] = entry.ID
	resp["history_date"] = entry.RecordedAt
	resp["history_type"] = entry.ChangeKind
	resp["history_user_id"] = entry.ChangedByID
	return resp
}
