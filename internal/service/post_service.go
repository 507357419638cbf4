package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tracker-service/internal/authz"
	"github.com/spec-kit/tracker-service/internal/domain"
	"github.com/spec-kit/tracker-service/internal/events"
	"github.com/spec-kit/tracker-service/internal/repository"
	apperrors "github.com/spec-kit/tracker-service/pkg/util"
)

// PostService coordinates post workflows: authorization, ownership-scoped
// listing, transactional mutation with history append, and the history
// projection read path.
type PostService struct {
	uow        repository.UnitOfWork
	posts      repository.PostRepository
	history    repository.HistoryRepository
	engine     *authz.Engine
	dispatcher events.Dispatcher
}

// PostDependencies bundles requirements for the post service.
type PostDependencies struct {
	UnitOfWork  repository.UnitOfWork
	PostRepo    repository.PostRepository
	HistoryRepo repository.HistoryRepository
	Engine      *authz.Engine
	Dispatcher  events.Dispatcher
}

// NewPostService constructs the service.
func NewPostService(deps PostDependencies) *PostService {
	return &PostService{
		uow:        deps.UnitOfWork,
		posts:      deps.PostRepo,
		history:    deps.HistoryRepo,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
	}
}

// PostCreateInput describes post creation payload.
type PostCreateInput struct {
	Name        string
	Description string
	Status      *domain.PostStatus
	OwnerID     *int64
}

// PostUpdateInput describes post update payload. Nil fields are untouched on
// partial updates.
type PostUpdateInput struct {
	Name        *string
	Description *string
	Status      *domain.PostStatus
	OwnerID     *int64
}

// PostListQuery describes list filters.
type PostListQuery struct {
	ID      *int64
	Status  *domain.PostStatus
	OwnerID *int64
	Search  *string
	Limit   int
	Offset  int
}

// Create makes a new post owned by the caller unless an explicit owner is
// assigned.
func (s *PostService) Create(ctx context.Context, subject *domain.Subject, input PostCreateInput) (*domain.Post, error) {
	if s.engine.Authorize(subject, authz.ActionCreate, authz.ClassRef(authz.ClassPost)) != authz.Allow {
		return nil, denied(subject)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}

	status := domain.PostStatusNew
	if input.Status != nil {
		if !domain.ValidPostStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		status = *input.Status
	}

	ownerID := input.OwnerID
	if ownerID == nil {
		id := subject.ID
		ownerID = &id
	}

	post := &domain.Post{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		OwnerID:     ownerID,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Posts.Create(ctx, post); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.HistoryEntry{
			ResourceType: domain.ResourcePost,
			ResourceID:   post.ID,
			ChangeKind:   domain.ChangeCreated,
			ChangedByID:  &subject.ID,
			Snapshot:     snapshotPost(post),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventPostCreated,
		ResourceType: domain.ResourcePost,
		ResourceID:   post.ID,
		ActorID:      &subject.ID,
		Payload:      events.PostChangedPayload{Name: post.Name, NewStatus: post.Status},
	})
	return post, nil
}

// Get fetches one post within the caller's visible set. Resources outside it
// report not-found, never forbidden, so their existence is not leaked.
func (s *PostService) Get(ctx context.Context, subject *domain.Subject, id int64) (*domain.Post, error) {
	if s.engine.Authorize(subject, authz.ActionRetrieve, authz.ClassRef(authz.ClassPost)) != authz.Allow {
		return nil, denied(subject)
	}
	return s.visiblePost(ctx, subject, id)
}

// List returns the caller's visible posts, filtered and in stable order.
func (s *PostService) List(ctx context.Context, subject *domain.Subject, query PostListQuery) ([]domain.Post, error) {
	if s.engine.Authorize(subject, authz.ActionList, authz.ClassRef(authz.ClassPost)) != authz.Allow {
		return nil, denied(subject)
	}

	filter := repository.PostFilter{
		ID:      query.ID,
		Status:  query.Status,
		OwnerID: query.OwnerID,
		Search:  query.Search,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}

	if !subject.IsStaff && !subject.IsSuperuser {
		// Intersect the requested owner filter with the implicit
		// owner == subject predicate.
		if filter.OwnerID != nil && *filter.OwnerID != subject.ID {
			return []domain.Post{}, nil
		}
		id := subject.ID
		filter.OwnerID = &id
	}

	posts, err := s.posts.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// Update mutates a post and appends the history entry in one transaction.
func (s *PostService) Update(ctx context.Context, subject *domain.Subject, id int64, input PostUpdateInput) (*domain.Post, error) {
	post, err := s.visiblePost(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	if s.engine.Authorize(subject, authz.ActionUpdate, authz.InstanceRef(authz.ClassPost, post.OwnerID)) != authz.Allow {
		return nil, denied(subject)
	}

	oldStatus := post.Status
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name required", nil)
		}
		post.Name = name
	}
	if input.Description != nil {
		post.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !domain.ValidPostStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		post.Status = *input.Status
	}
	if input.OwnerID != nil {
		post.OwnerID = input.OwnerID
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Posts.Update(ctx, post); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.HistoryEntry{
			ResourceType: domain.ResourcePost,
			ResourceID:   post.ID,
			ChangeKind:   domain.ChangeUpdated,
			ChangedByID:  &subject.ID,
			Snapshot:     snapshotPost(post),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventPostUpdated,
		ResourceType: domain.ResourcePost,
		ResourceID:   post.ID,
		ActorID:      &subject.ID,
		Payload:      events.PostChangedPayload{Name: post.Name, OldStatus: oldStatus, NewStatus: post.Status},
	})
	return post, nil
}

// Delete removes a post. The final history entry is appended in the same
// transaction that deletes the row, so the trail records the deletion and
// survives it.
func (s *PostService) Delete(ctx context.Context, subject *domain.Subject, id int64) error {
	post, err := s.visiblePost(ctx, subject, id)
	if err != nil {
		return err
	}
	if s.engine.Authorize(subject, authz.ActionDelete, authz.InstanceRef(authz.ClassPost, post.OwnerID)) != authz.Allow {
		return denied(subject)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.History.Append(ctx, &domain.HistoryEntry{
			ResourceType: domain.ResourcePost,
			ResourceID:   post.ID,
			ChangeKind:   domain.ChangeDeleted,
			ChangedByID:  &subject.ID,
			Snapshot:     snapshotPost(post),
		}); err != nil {
			return err
		}
		return repos.Posts.Delete(ctx, post.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventPostDeleted,
		ResourceType: domain.ResourcePost,
		ResourceID:   post.ID,
		ActorID:      &subject.ID,
		Payload:      events.PostChangedPayload{Name: post.Name, NewStatus: post.Status},
	})
	return nil
}

// History replays the audit trail of one post, oldest first. The projection
// is keyed by historical id, so it works for deleted posts too; ownership of
// a deleted post is read from its latest snapshot.
func (s *PostService) History(ctx context.Context, subject *domain.Subject, id int64) ([]domain.HistoryEntry, error) {
	if s.engine.Authorize(subject, authz.ActionRetrieve, authz.ClassRef(authz.ClassPost)) != authz.Allow {
		return nil, denied(subject)
	}

	entries, err := s.history.ListByResource(ctx, domain.ResourcePost, id)
	if err != nil {
		return nil, err
	}

	if subject.IsStaff || subject.IsSuperuser {
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		return entries, nil
	}

	post, err := s.posts.GetByID(ctx, id)
	switch {
	case err == nil:
		if !canSee(subject, post.OwnerID) {
			return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
		}
	case err == pgx.ErrNoRows:
		if len(entries) == 0 {
			return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
		}
		owner := snapshotOwnerID(entries[len(entries)-1].Snapshot)
		if !canSee(subject, owner) {
			return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
		}
	default:
		return nil, err
	}

	return entries, nil
}

func (s *PostService) visiblePost(ctx context.Context, subject *domain.Subject, id int64) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
		}
		return nil, err
	}
	if !canSee(subject, post.OwnerID) {
		return nil, apperrors.NewNotFound("post", map[string]any{"id": id})
	}
	return post, nil
}

func (s *PostService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
