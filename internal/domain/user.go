package domain

import "time"

// User is the stored account record.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject is the authenticated caller view of a user, threaded explicitly
// through every authorization, query and history call.
type Subject struct {
	ID          int64
	Username    string
	IsStaff     bool
	IsSuperuser bool
}

// IsAuthenticated reports whether the subject maps to a real account.
func (s *Subject) IsAuthenticated() bool {
	return s != nil && s.ID > 0
}

// SubjectOf derives the request principal from an account.
func SubjectOf(u *User) *Subject {
	if u == nil {
		return nil
	}
	return &Subject{
		ID:          u.ID,
		Username:    u.Username,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
	}
}
