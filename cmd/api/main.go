package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/team-hierarchy-service/internal/api/http"
	"github.com/spec-kit/team-hierarchy-service/internal/api/http/handlers"
	"github.com/spec-kit/team-hierarchy-service/internal/auth"
	"github.com/spec-kit/team-hierarchy-service/internal/config"
	"github.com/spec-kit/team-hierarchy-service/internal/events"
	"github.com/spec-kit/team-hierarchy-service/internal/observability"
	"github.com/spec-kit/team-hierarchy-service/internal/persistence"
	"github.com/spec-kit/team-hierarchy-service/internal/repository"
	"github.com/spec-kit/team-hierarchy-service/internal/service"
	"github.com/spec-kit/team-hierarchy-service/internal/worker"
)

const reconcileLockKey = "team-hierarchy:reconcile"

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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	teamRepo := repository.NewTeamRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	graphRepo := repository.NewGraphRepository(pool)
	reconciler := repository.NewGraphReconciler(pool)

	teamService := service.NewTeamService(service.TeamDependencies{
		TeamRepo:   teamRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	membershipService := service.NewMembershipService(service.MembershipDependencies{
		TeamRepo:       teamRepo,
		MembershipRepo: membershipRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	reconcileService := service.NewReconcileService(service.ReconcileDependencies{
		Reconciler: reconciler,
		Lock:       redis.NewMutex(reconcileLockKey, cfg.Reconcile.LockTTL()),
		Logger:     logger,
		Metrics:    metrics,
	})
	hierarchyService := service.NewHierarchyService(graphRepo, cfg.Hierarchy.MaxDepth)

	reconcileWorker, err := worker.StartReconcileWorker(dispatcher, reconcileService, cfg.Reconcile, logger)
	if err != nil {
		logger.Fatal("failed to start reconcile worker", zap.Error(err))
	}
	defer reconcileWorker.Stop()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, cfg.Auth.Disabled)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Teams:          handlers.NewTeamsHandler(teamService),
		Memberships:    handlers.NewMembershipsHandler(membershipService),
		Hierarchy:      handlers.NewHierarchyHandler(hierarchyService),
		Reconcile:      handlers.NewReconcileHandler(reconcileService),
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
