package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tracker-service/internal/api/http/handlers"
	"github.com/spec-kit/tracker-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Posts          *handlers.PostsHandler
	Comments       *handlers.CommentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. The /api/tasks/ and /tasks/ prefixes are
// kept as aliases for the older generation of clients; they serve the same
// resource as /api/posts/.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/register/", cfg.Users.Register)
	api.Post("/login/", cfg.Users.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/logout/", cfg.Users.Logout)
	protected.Get("/users/", cfg.Users.List)
	protected.Get("/users/me/", cfg.Users.Me)

	for _, prefix := range []string{"/posts", "/tasks"} {
		group := protected.Group(prefix)
		group.Get("/", cfg.Posts.List)
		group.Post("/", cfg.Posts.Create)
		group.Get("/:id/", cfg.Posts.Get)
		group.Put("/:id/", cfg.Posts.Update)
		group.Patch("/:id/", cfg.Posts.Update)
		group.Delete("/:id/", cfg.Posts.Delete)
		group.Get("/:id/comments/", cfg.Posts.ListComments)
	}

	comments := protected.Group("/comments")
	comments.Get("/", cfg.Comments.List)
	comments.Post("/", cfg.Comments.Create)
	comments.Get("/:id/", cfg.Comments.Get)
	comments.Put("/:id/", cfg.Comments.Update)
	comments.Patch("/:id/", cfg.Comments.Update)
	comments.Delete("/:id/", cfg.Comments.Delete)

	// The history pages live outside the /api prefix, as they always have.
	history := app.Group("", cfg.AuthMiddleware.Handle)
	history.Get("/posts/:id/history/", cfg.Posts.History)
	history.Get("/tasks/:id/history/", cfg.Posts.History)
}
