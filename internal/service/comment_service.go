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

// CommentService coordinates comment workflows. Comment visibility inherits
// the parent post's visibility; mutation is restricted to the author or a
// superuser.
type CommentService struct {
	uow        repository.UnitOfWork
	comments   repository.CommentRepository
	posts      repository.PostRepository
	engine     *authz.Engine
	dispatcher events.Dispatcher
}

// CommentDependencies bundles requirements for the comment service.
type CommentDependencies struct {
	UnitOfWork  repository.UnitOfWork
	CommentRepo repository.CommentRepository
	PostRepo    repository.PostRepository
	Engine      *authz.Engine
	Dispatcher  events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		uow:        deps.UnitOfWork,
		comments:   deps.CommentRepo,
		posts:      deps.PostRepo,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
	}
}

// CommentCreateInput describes comment creation payload.
type CommentCreateInput struct {
	PostID  int64
	Content string
}

// CommentListQuery describes list filters.
type CommentListQuery struct {
	PostID *int64
	Limit  int
	Offset int
}

// Create adds a comment authored by the caller to a visible post.
func (s *CommentService) Create(ctx context.Context, subject *domain.Subject, input CommentCreateInput) (*domain.Comment, error) {
	if s.engine.Authorize(subject, authz.ActionCreate, authz.ClassRef(authz.ClassComment)) != authz.Allow {
		return nil, denied(subject)
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}

	if _, err := s.visibleParent(ctx, subject, input.PostID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID:   input.PostID,
		AuthorID: subject.ID,
		Content:  content,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.HistoryEntry{
			ResourceType: domain.ResourceComment,
			ResourceID:   comment.ID,
			ChangeKind:   domain.ChangeCreated,
			ChangedByID:  &subject.ID,
			Snapshot:     snapshotComment(comment),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventCommentCreated,
		ResourceType: domain.ResourceComment,
		ResourceID:   comment.ID,
		ActorID:      &subject.ID,
		Payload:      events.CommentChangedPayload{PostID: comment.PostID, BodyPreview: preview(comment.Content, 120)},
	})
	return comment, nil
}

// Get fetches one comment, gated on the parent post's visibility.
func (s *CommentService) Get(ctx context.Context, subject *domain.Subject, id int64) (*domain.Comment, error) {
	if s.engine.Authorize(subject, authz.ActionRetrieve, authz.ClassRef(authz.ClassComment)) != authz.Allow {
		return nil, denied(subject)
	}
	comment, _, err := s.visibleComment(ctx, subject, id)
	return comment, err
}

// List returns comments on posts the caller can see, oldest first.
func (s *CommentService) List(ctx context.Context, subject *domain.Subject, query CommentListQuery) ([]domain.Comment, error) {
	if s.engine.Authorize(subject, authz.ActionList, authz.ClassRef(authz.ClassComment)) != authz.Allow {
		return nil, denied(subject)
	}

	filter := repository.CommentFilter{
		PostID: query.PostID,
		Limit:  query.Limit,
		Offset: query.Offset,
	}

	if query.PostID != nil {
		if _, err := s.visibleParent(ctx, subject, *query.PostID); err != nil {
			return nil, err
		}
	} else if !subject.IsStaff && !subject.IsSuperuser {
		id := subject.ID
		filter.ParentOwnerID = &id
	}

	comments, err := s.comments.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// Update edits a comment body. Only the author or a superuser may do this;
// even the parent post's owner is refused.
func (s *CommentService) Update(ctx context.Context, subject *domain.Subject, id int64, content string) (*domain.Comment, error) {
	comment, _, err := s.visibleComment(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	authorID := comment.AuthorID
	if s.engine.Authorize(subject, authz.ActionUpdate, authz.InstanceRef(authz.ClassComment, &authorID)) != authz.Allow {
		return nil, denied(subject)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}
	comment.Content = content

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Comments.Update(ctx, comment); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.HistoryEntry{
			ResourceType: domain.ResourceComment,
			ResourceID:   comment.ID,
			ChangeKind:   domain.ChangeUpdated,
			ChangedByID:  &subject.ID,
			Snapshot:     snapshotComment(comment),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventCommentUpdated,
		ResourceType: domain.ResourceComment,
		ResourceID:   comment.ID,
		ActorID:      &subject.ID,
		Payload:      events.CommentChangedPayload{PostID: comment.PostID, BodyPreview: preview(comment.Content, 120)},
	})
	return comment, nil
}

// Delete removes a comment under the same rule as Update.
func (s *CommentService) Delete(ctx context.Context, subject *domain.Subject, id int64) error {
	comment, _, err := s.visibleComment(ctx, subject, id)
	if err != nil {
		return err
	}
	authorID := comment.AuthorID
	if s.engine.Authorize(subject, authz.ActionDelete, authz.InstanceRef(authz.ClassComment, &authorID)) != authz.Allow {
		return denied(subject)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.History.Append(ctx, &domain.HistoryEntry{
			ResourceType: domain.ResourceComment,
			ResourceID:   comment.ID,
			ChangeKind:   domain.ChangeDeleted,
			ChangedByID:  &subject.ID,
			Snapshot:     snapshotComment(comment),
		}); err != nil {
			return err
		}
		return repos.Comments.Delete(ctx, comment.ID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:         events.EventCommentDeleted,
		ResourceType: domain.ResourceComment,
		ResourceID:   comment.ID,
		ActorID:      &subject.ID,
		Payload:      events.CommentChangedPayload{PostID: comment.PostID},
	})
	return nil
}

func (s *CommentService) visibleParent(ctx context.Context, subject *domain.Subject, postID int64) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("post", map[string]any{"id": postID})
		}
		return nil, err
	}
	if !canSee(subject, post.OwnerID) {
		return nil, apperrors.NewNotFound("post", map[string]any{"id": postID})
	}
	return post, nil
}

func (s *CommentService) visibleComment(ctx context.Context, subject *domain.Subject, id int64) (*domain.Comment, *domain.Post, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("comment", map[string]any{"id": id})
		}
		return nil, nil, err
	}
	post, err := s.visibleParent(ctx, subject, comment.PostID)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == "NOT_FOUND" {
			return nil, nil, apperrors.NewNotFound("comment", map[string]any{"id": id})
		}
		return nil, nil, err
	}
	return comment, post, nil
}

func (s *CommentService) publish(ctx context.Context, event events.Event) {
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

// preview truncates on rune boundaries; comment bodies are Polish and byte
// slicing could split a multibyte sequence.
func preview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
