// Package testutil provides in-memory implementations of the persistence
// interfaces so services and handlers can be exercised without postgres or
// redis.
package testutil

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tracker-service/internal/domain"
	"github.com/spec-kit/tracker-service/internal/repository"
)

// Store holds all in-memory tables behind one lock. Its clock advances one
// millisecond per tick so recorded_at timestamps are strictly increasing
// even in fast tests.
type Store struct {
	mu         sync.Mutex
	now        time.Time
	nextID     int64
	users      map[int64]domain.User
	posts      map[int64]domain.Post
	comments   map[int64]domain.Comment
	history    []domain.HistoryEntry
	historyErr error
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		users:    make(map[int64]domain.User),
		posts:    make(map[int64]domain.Post),
		comments: make(map[int64]domain.Comment),
	}
}

func (s *Store) tick() time.Time {
	s.now = s.now.Add(time.Millisecond)
	return s.now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Repositories returns the full repository set over this store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Users:    &memUserRepository{store: s},
		Comments: &memCommentRepository{store: s},
		Posts:    &memPostRepository{store: s},
		History:  &memHistoryRepository{store: s},
	}
}

// UnitOfWork returns a unit of work over this store. It snapshots every
// table before running fn and restores the snapshot when fn errors, matching
// the transactional contract of the pgx implementation.
func (s *Store) UnitOfWork() repository.UnitOfWork {
	return &memUnitOfWork{store: s}
}

// FailHistoryAppend makes every subsequent history append return err, until
// called again with nil.
func (s *Store) FailHistoryAppend(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyErr = err
}

type storeSnapshot struct {
	now      time.Time
	nextID   int64
	users    map[int64]domain.User
	posts    map[int64]domain.Post
	comments map[int64]domain.Comment
	history  []domain.HistoryEntry
}

// callers hold s.mu
func (s *Store) snapshot() storeSnapshot {
	return storeSnapshot{
		now:      s.now,
		nextID:   s.nextID,
		users:    maps.Clone(s.users),
		posts:    maps.Clone(s.posts),
		comments: maps.Clone(s.comments),
		history:  slices.Clone(s.history),
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.now = snap.now
	s.nextID = snap.nextID
	s.users = snap.users
	s.posts = snap.posts
	s.comments = snap.comments
	s.history = snap.history
}

type memUnitOfWork struct {
	store *Store
}

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s := u.store
	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(ctx, s.Repositories()); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type memUserRepository struct {
	store *Store
}

func (r *memUserRepository) Create(_ context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.id()
	user.CreatedAt = s.tick()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (r *memUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepository) List(_ context.Context) ([]domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type memPostRepository struct {
	store *Store
}

func (r *memPostRepository) Create(_ context.Context, post *domain.Post) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = s.id()
	post.CreatedAt = s.tick()
	post.UpdatedAt = post.CreatedAt
	s.posts[post.ID] = *post
	return nil
}

func (r *memPostRepository) Update(_ context.Context, post *domain.Post) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return pgx.ErrNoRows
	}
	post.UpdatedAt = s.tick()
	s.posts[post.ID] = *post
	return nil
}

func (r *memPostRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.posts, id)
	// Cascade, like the FK does.
	for cid, comment := range s.comments {
		if comment.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (r *memPostRepository) GetByID(_ context.Context, id int64) (*domain.Post, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &post, nil
}

func (r *memPostRepository) ListWithFilter(_ context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Post
	for _, post := range s.posts {
		if filter.ID != nil && post.ID != *filter.ID {
			continue
		}
		if filter.Status != nil && post.Status != *filter.Status {
			continue
		}
		if filter.OwnerID != nil && (post.OwnerID == nil || *post.OwnerID != *filter.OwnerID) {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.Search))
			if needle != "" &&
				!strings.Contains(strings.ToLower(post.Name), needle) &&
				!strings.Contains(strings.ToLower(post.Description), needle) {
				continue
			}
		}
		result = append(result, post)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

type memCommentRepository struct {
	store *Store
}

func (r *memCommentRepository) Create(_ context.Context, comment *domain.Comment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = s.id()
	comment.CreatedAt = s.tick()
	comment.UpdatedAt = comment.CreatedAt
	s.comments[comment.ID] = *comment
	return nil
}

func (r *memCommentRepository) Update(_ context.Context, comment *domain.Comment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[comment.ID]; !ok {
		return pgx.ErrNoRows
	}
	comment.UpdatedAt = s.tick()
	s.comments[comment.ID] = *comment
	return nil
}

func (r *memCommentRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.comments, id)
	return nil
}

func (r *memCommentRepository) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &comment, nil
}

func (r *memCommentRepository) ListWithFilter(_ context.Context, filter repository.CommentFilter) ([]domain.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.Comment
	for _, comment := range s.comments {
		if filter.PostID != nil && comment.PostID != *filter.PostID {
			continue
		}
		if filter.ParentOwnerID != nil {
			parent, ok := s.posts[comment.PostID]
			if !ok || parent.OwnerID == nil || *parent.OwnerID != *filter.ParentOwnerID {
				continue
			}
		}
		result = append(result, comment)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

type memHistoryRepository struct {
	store *Store
}

func (r *memHistoryRepository) Append(_ context.Context, entry *domain.HistoryEntry) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return s.historyErr
	}
	entry.ID = s.id()
	entry.RecordedAt = s.tick()
	s.history = append(s.history, *entry)
	return nil
}

func (r *memHistoryRepository) ListByResource(_ context.Context, resourceType domain.ResourceType, resourceID int64) ([]domain.HistoryEntry, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []domain.HistoryEntry
	for _, entry := range s.history {
		if entry.ResourceType == resourceType && entry.ResourceID == resourceID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].RecordedAt.Equal(result[j].RecordedAt) {
			return result[i].RecordedAt.Before(result[j].RecordedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// MemRevocationStore is an in-memory token denylist.
type MemRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemRevocationStore builds an empty denylist.
func NewMemRevocationStore() *MemRevocationStore {
	return &MemRevocationStore{revoked: make(map[string]time.Time)}
}

// Revoke records the jti.
func (s *MemRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = expiresAt
	return nil
}

// IsRevoked reports whether the jti was revoked.
func (s *MemRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok, nil
}
