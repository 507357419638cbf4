package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/tracker-service/internal/api/http"
	"github.com/spec-kit/tracker-service/internal/api/http/handlers"
	"github.com/spec-kit/tracker-service/internal/auth"
	"github.com/spec-kit/tracker-service/internal/authz"
	"github.com/spec-kit/tracker-service/internal/config"
	"github.com/spec-kit/tracker-service/internal/domain"
	"github.com/spec-kit/tracker-service/internal/events"
	"github.com/spec-kit/tracker-service/internal/observability"
	"github.com/spec-kit/tracker-service/internal/service"
)

// DefaultPassword is the password CreateUser assigns to every account.
const DefaultPassword = "haslo123"

// TestApp bundles a fully wired fiber application over in-memory storage.
type TestApp struct {
	App      *fiber.App
	Store    *Store
	Auth     *service.AuthService
	Posts    *service.PostService
	Comments *service.CommentService
}

// NewApp wires services, middleware and routes the same way cmd/api does,
// swapping postgres and redis for the in-memory store.
func NewApp(t *testing.T) *TestApp {
	t.Helper()

	store := NewStore()
	repos := store.Repositories()
	uow := store.UnitOfWork()
	engine := authz.NewEngine()
	dispatcher := events.NewInMemoryDispatcher()
	revocation := NewMemRevocationStore()

	authCfg := config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}

	authService := service.NewAuthService(authCfg, service.AuthDependencies{
		UserRepo:   repos.Users,
		Revocation: revocation,
		Dispatcher: dispatcher,
	})
	postService := service.NewPostService(service.PostDependencies{
		UnitOfWork:  uow,
		PostRepo:    repos.Posts,
		HistoryRepo: repos.History,
		Engine:      engine,
		Dispatcher:  dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		UnitOfWork:  uow,
		CommentRepo: repos.Comments,
		PostRepo:    repos.Posts,
		Engine:      engine,
		Dispatcher:  dispatcher,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	resolver := handlers.NewUsernameResolver(repos.Users)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("tracker-service", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Posts:          handlers.NewPostsHandler(postService, commentService, resolver),
		Comments:       handlers.NewCommentsHandler(commentService, resolver),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.Users, revocation),
	})

	return &TestApp{
		App:      app,
		Store:    store,
		Auth:     authService,
		Posts:    postService,
		Comments: commentService,
	}
}

// CreateUser inserts an account directly into the store.
func (a *TestApp) CreateUser(t *testing.T, username string, staff, superuser bool) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsStaff:      staff,
		IsSuperuser:  superuser,
	}
	if err := a.Store.Repositories().Users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// Token issues a bearer token for the user.
func (a *TestApp) Token(t *testing.T, user *domain.User) string {
	t.Helper()

	token, _, err := a.Auth.TokenManager().GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// Request performs an HTTP round trip against the app. A non-empty token is
// sent as a bearer credential and a non-nil body is JSON encoded.
func (a *TestApp) Request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.App.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// DecodeJSON reads and unmarshals a response body.
func DecodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
}
