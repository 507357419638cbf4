package domain

import "time"

// Comment belongs to exactly one post and is removed with it.
type Comment struct {
	ID        int64
	PostID    int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
