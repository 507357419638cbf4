package handlers

import (
	"context"

	"github.com/spec-kit/tracker-service/internal/api/dto"
	"github.com/spec-kit/tracker-service/internal/repository"
)

// usernameResolver builds per-request lookup caches over the user
// repository, so list responses fetch each owner once without account data
// going stale across requests.
type usernameResolver struct {
	users repository.UserRepository
}

// NewUsernameResolver builds a resolver over the user repository.
func NewUsernameResolver(users repository.UserRepository) *usernameResolver {
	return &usernameResolver{users: users}
}

// forRequest returns a lookup cache scoped to a single request. Not safe for
// concurrent use; one handler invocation owns it.
func (r *usernameResolver) forRequest() *userLookup {
	return &userLookup{users: r.users, cache: make(map[int64]userCacheEntry)}
}

type userCacheEntry struct {
	resp dto.UserResponse
	ok   bool
}

type userLookup struct {
	users repository.UserRepository
	cache map[int64]userCacheEntry
}

func (l *userLookup) lookup(ctx context.Context, id int64) (dto.UserResponse, bool) {
	if entry, ok := l.cache[id]; ok {
		return entry.resp, entry.ok
	}

	user, err := l.users.GetByID(ctx, id)
	if err != nil {
		l.cache[id] = userCacheEntry{}
		return dto.UserResponse{}, false
	}
	resp := dto.NewUserResponse(user)
	l.cache[id] = userCacheEntry{resp: resp, ok: true}
	return resp, true
}
