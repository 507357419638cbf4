package domain

import "time"

// ResourceType names the entity a history entry belongs to.
type ResourceType string

const (
	ResourcePost    ResourceType = "post"
	ResourceComment ResourceType = "comment"
)

// ChangeKind captures what a history entry records.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// HistoryEntry is an immutable audit snapshot of a resource at the moment a
// mutation committed. Entries are never updated or deleted, even after the
// live resource is gone.
type HistoryEntry struct {
	ID           int64
	ResourceType ResourceType
	ResourceID   int64
	ChangeKind   ChangeKind
	ChangedByID  *int64
	Snapshot     map[string]any
	RecordedAt   time.Time
}
