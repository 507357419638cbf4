package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/tracker-service/internal/domain"
	"github.com/spec-kit/tracker-service/internal/service"
	"github.com/spec-kit/tracker-service/internal/testutil"
)

func TestCommentServiceCreate(t *testing.T) {
	t.Parallel()

	t.Run("author comments a visible post", func(t *testing.T) {
		t.Parallel()
		store := testutil.NewStore()
		posts, comments := newPostService(store), newCommentService(store)
		owner := asUser(1)

		post, err := posts.Create(context.Background(), owner, service.PostCreateInput{Name: "wpis"})
		if err != nil {
			t.Fatalf("Create post: %v", err)
		}
		comment, err := comments.Create(context.Background(), owner, service.CommentCreateInput{PostID: post.ID, Content: "świetne"})
		if err != nil {
			t.Fatalf("Create comment: %v", err)
		}
		if comment.AuthorID != owner.ID {
			t.Errorf("author = %d, want %d", comment.AuthorID, owner.ID)
		}

		entries, err := store.Repositories().History.ListByResource(context.Background(), domain.ResourceComment, comment.ID)
		if err != nil {
			t.Fatalf("ListByResource: %v", err)
		}
		if len(entries) != 1 || entries[0].ChangeKind != domain.ChangeCreated {
			t.Fatalf("history = %+v, want one created entry", entries)
		}
	})

	t.Run("invisible parent reads as not found", func(t *testing.T) {
		t.Parallel()
		store := testutil.NewStore()
		posts, comments := newPostService(store), newCommentService(store)

		post, err := posts.Create(context.Background(), asUser(1), service.PostCreateInput{Name: "wpis"})
		if err != nil {
			t.Fatalf("Create post: %v", err)
		}
		_, err = comments.Create(context.Background(), asUser(2), service.CommentCreateInput{PostID: post.ID, Content: "x"})
		if code := errCode(t, err); code != "NOT_FOUND" {
			t.Fatalf("code = %q, want NOT_FOUND", code)
		}
	})

	t.Run("failed history append rolls back the comment", func(t *testing.T) {
		t.Parallel()
		store := testutil.NewStore()
		posts, comments := newPostService(store), newCommentService(store)
		owner := asUser(1)

		post, err := posts.Create(context.Background(), owner, service.PostCreateInput{Name: "wpis"})
		if err != nil {
			t.Fatalf("Create post: %v", err)
		}
		store.FailHistoryAppend(errors.New("history append refused"))

		if _, err := comments.Create(context.Background(), owner, service.CommentCreateInput{PostID: post.ID, Content: "x"}); err == nil {
			t.Fatal("Create succeeded despite failing history append")
		}
		store.FailHistoryAppend(nil)

		got, err := comments.List(context.Background(), owner, service.CommentListQuery{PostID: &post.ID})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("comments persisted after failed mutation: %d", len(got))
		}
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		t.Parallel()
		store := testutil.NewStore()
		comments := newCommentService(store)

		_, err := comments.Create(context.Background(), asUser(1), service.CommentCreateInput{PostID: 1, Content: " "})
		if code := errCode(t, err); code != "VALIDATION_FAILED" {
			t.Fatalf("code = %q, want VALIDATION_FAILED", code)
		}
	})
}

func TestCommentServiceMutation(t *testing.T) {
	t.Parallel()

	// One post by the owner, one comment on it by another user, both visible
	// to staff and to the post owner.
	setup := func(t *testing.T) (*testutil.Store, *service.CommentService, *domain.Comment) {
		t.Helper()
		store := testutil.NewStore()
		posts, comments := newPostService(store), newCommentService(store)

		post, err := posts.Create(context.Background(), asStaff(1), service.PostCreateInput{Name: "wpis"})
		if err != nil {
			t.Fatalf("Create post: %v", err)
		}
		comment, err := comments.Create(context.Background(), asStaff(2), service.CommentCreateInput{PostID: post.ID, Content: "komentarz"})
		if err != nil {
			t.Fatalf("Create comment: %v", err)
		}
		return store, comments, comment
	}

	t.Run("author edits own comment", func(t *testing.T) {
		t.Parallel()
		_, comments, comment := setup(t)

		updated, err := comments.Update(context.Background(), asStaff(2), comment.ID, "poprawiony")
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Content != "poprawiony" {
			t.Errorf("content = %q, want %q", updated.Content, "poprawiony")
		}
	})

	t.Run("staff non-author is forbidden", func(t *testing.T) {
		t.Parallel()
		_, comments, comment := setup(t)

		_, err := comments.Update(context.Background(), asStaff(1), comment.ID, "przejęty")
		if code := errCode(t, err); code != "FORBIDDEN" {
			t.Fatalf("code = %q, want FORBIDDEN", code)
		}
	})

	t.Run("superuser deletes any comment", func(t *testing.T) {
		t.Parallel()
		store, comments, comment := setup(t)

		if err := comments.Delete(context.Background(), asSuperuser(9), comment.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		entries, err := store.Repositories().History.ListByResource(context.Background(), domain.ResourceComment, comment.ID)
		if err != nil {
			t.Fatalf("ListByResource: %v", err)
		}
		if len(entries) != 2 || entries[1].ChangeKind != domain.ChangeDeleted {
			t.Fatalf("entries = %+v, want created then deleted", entries)
		}
	})

	t.Run("comment on invisible post reads as not found", func(t *testing.T) {
		t.Parallel()
		_, comments, comment := setup(t)

		_, err := comments.Get(context.Background(), asUser(5), comment.ID)
		if code := errCode(t, err); code != "NOT_FOUND" {
			t.Fatalf("code = %q, want NOT_FOUND", code)
		}
	})
}

func TestCommentServiceList(t *testing.T) {
	t.Parallel()

	store := testutil.NewStore()
	posts, comments := newPostService(store), newCommentService(store)
	alice, bob := asUser(1), asUser(2)

	minePost, err := posts.Create(context.Background(), alice, service.PostCreateInput{Name: "moje"})
	if err != nil {
		t.Fatalf("Create post: %v", err)
	}
	theirPost, err := posts.Create(context.Background(), bob, service.PostCreateInput{Name: "cudze"})
	if err != nil {
		t.Fatalf("Create post: %v", err)
	}
	if _, err := comments.Create(context.Background(), alice, service.CommentCreateInput{PostID: minePost.ID, Content: "a"}); err != nil {
		t.Fatalf("Create comment: %v", err)
	}
	if _, err := comments.Create(context.Background(), bob, service.CommentCreateInput{PostID: theirPost.ID, Content: "b"}); err != nil {
		t.Fatalf("Create comment: %v", err)
	}

	t.Run("unfiltered list is scoped to visible parents", func(t *testing.T) {
		t.Parallel()
		got, err := comments.List(context.Background(), alice, service.CommentListQuery{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 || got[0].PostID != minePost.ID {
			t.Fatalf("comments = %+v, want only those on post %d", got, minePost.ID)
		}
	})

	t.Run("staff sees comments on every post", func(t *testing.T) {
		t.Parallel()
		got, err := comments.List(context.Background(), asStaff(9), service.CommentListQuery{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
	})

	t.Run("post filter on invisible post reads as not found", func(t *testing.T) {
		t.Parallel()
		_, err := comments.List(context.Background(), alice, service.CommentListQuery{PostID: &theirPost.ID})
		if code := errCode(t, err); code != "NOT_FOUND" {
			t.Fatalf("code = %q, want NOT_FOUND", code)
		}
	})
}
