package handlers

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/tracker-service/internal/domain"
)

type stubUserRepository struct {
	byID  map[int64]domain.User
	calls int
}

func (s *stubUserRepository) Create(context.Context, *domain.User) error { return nil }

func (s *stubUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.calls++
	user, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (s *stubUserRepository) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepository) List(context.Context) ([]domain.User, error) { return nil, nil }

func TestUsernameResolver(t *testing.T) {
	t.Parallel()

	repo := &stubUserRepository{byID: map[int64]domain.User{7: {ID: 7, Username: "jkowalski"}}}
	resolver := NewUsernameResolver(repo)

	t.Run("one fetch per request for repeated ids", func(t *testing.T) {
		users := resolver.forRequest()
		for i := 0; i < 3; i++ {
			got, ok := users.lookup(context.Background(), 7)
			if !ok || got.Username != "jkowalski" {
				t.Fatalf("lookup = %+v, %v", got, ok)
			}
		}
		if repo.calls != 1 {
			t.Fatalf("repo calls = %d, want 1", repo.calls)
		}
	})

	t.Run("next request sees a renamed account", func(t *testing.T) {
		repo.byID[7] = domain.User{ID: 7, Username: "jnowak"}
		got, ok := resolver.forRequest().lookup(context.Background(), 7)
		if !ok || got.Username != "jnowak" {
			t.Fatalf("lookup after rename = %+v, %v", got, ok)
		}
	})

	t.Run("unknown id misses once per request", func(t *testing.T) {
		users := resolver.forRequest()
		before := repo.calls
		for i := 0; i < 2; i++ {
			if _, ok := users.lookup(context.Background(), 99); ok {
				t.Fatal("lookup of unknown id succeeded")
			}
		}
		if repo.calls != before+1 {
			t.Fatalf("repo calls = %d, want %d", repo.calls, before+1)
		}
	})
}
