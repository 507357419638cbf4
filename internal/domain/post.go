package domain

import "time"

// PostStatus enumerates lifecycle states for posts. The values are the
// legacy Polish labels; API clients depend on them verbatim.
type PostStatus string

const (
	PostStatusNew        PostStatus = "Nowy"
	PostStatusInProgress PostStatus = "W toku"
	PostStatusResolved   PostStatus = "Rozwiązany"
)

// ValidPostStatus reports whether s is one of the known states.
func ValidPostStatus(s PostStatus) bool {
	switch s {
	case PostStatusNew, PostStatusInProgress, PostStatusResolved:
		return true
	}
	return false
}

// Post is the primary resource: a task ticket in the old generation, a blog
// post in the new one. Same record either way.
type Post struct {
	ID          int64
	Name        string
	Description string
	Status      PostStatus
	OwnerID     *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
