package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/tracker-service/internal/api/http"
	"github.com/spec-kit/tracker-service/internal/api/http/handlers"
	"github.com/spec-kit/tracker-service/internal/auth"
	"github.com/spec-kit/tracker-service/internal/authz"
	"github.com/spec-kit/tracker-service/internal/config"
	"github.com/spec-kit/tracker-service/internal/events"
	"github.com/spec-kit/tracker-service/internal/observability"
	"github.com/spec-kit/tracker-service/internal/persistence"
	"github.com/spec-kit/tracker-service/internal/repository"
	"github.com/spec-kit/tracker-service/internal/service"
	"github.com/spec-kit/tracker-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	repos := repository.NewRepositories(pool)
	uow := repository.NewUnitOfWork(pool)

	engine := authz.NewEngine()
	dispatcher := events.NewInMemoryDispatcher()
	revocation := auth.NewRedisRevocationStore(redis.Client)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
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
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.Users, revocation)

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	resolver := handlers.NewUsernameResolver(repos.Users)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Posts:          handlers.NewPostsHandler(postService, commentService, resolver),
		Comments:       handlers.NewCommentsHandler(commentService, resolver),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
