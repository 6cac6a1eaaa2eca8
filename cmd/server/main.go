package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/mapcrew/backend/api/handler"
	"github.com/mapcrew/backend/internal/config"
	"github.com/mapcrew/backend/internal/infrastructure/monitor"
	pgInfra "github.com/mapcrew/backend/internal/infrastructure/postgres"
	redisInfra "github.com/mapcrew/backend/internal/infrastructure/redis"
	"github.com/mapcrew/backend/internal/middleware"
	"github.com/mapcrew/backend/internal/router"
	"github.com/mapcrew/backend/internal/services"
	"github.com/mapcrew/backend/internal/services/lifecycle"
	"github.com/mapcrew/backend/internal/services/outbox"
	"github.com/mapcrew/backend/pkg/httpcontext"
	"github.com/mapcrew/backend/pkg/logger"
	"github.com/mapcrew/backend/repository/postgres"
	redisRepo "github.com/mapcrew/backend/repository/redis"
	bundleUC "github.com/mapcrew/backend/usecase/bundle"
	lockUC "github.com/mapcrew/backend/usecase/lock"
	reviewUC "github.com/mapcrew/backend/usecase/review"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open outbox store", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	mon := monitor.New(pool, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	lockRepo := postgres.NewLockRepository(pool)
	bundleRepo := postgres.NewBundleRepository(pool)
	queueRepo := postgres.NewReviewQueueRepository(pool)
	historyRepo := postgres.NewReviewHistoryRepository(pool)
	challengeRepo := postgres.NewChallengeRepository(pool)
	commentRepo := postgres.NewCommentRepository(pool)
	taskCache := redisRepo.NewTaskCache(redisClient, cfg.Cache.TaskTTL)

	perms := services.NewPermissionChecker(challengeRepo)
	realtime := services.NewRealtimePublisher(redisClient, outboxStore, cfg.Review.RealtimeChannel, zapLogger)
	notifier := services.NewReviewNotifier(redisClient, outboxStore, cfg.Review.NotifQueue, zapLogger)
	scoreRelay := services.NewScoreRelay(redisClient, outboxStore, cfg.Review.ScoreQueue, zapLogger)

	lockService := lockUC.New(lockRepo, zapLogger)
	reviewService := reviewUC.New(reviewUC.Deps{
		Tasks:      taskRepo,
		Bundles:    bundleRepo,
		Queue:      queueRepo,
		History:    historyRepo,
		Challenges: challengeRepo,
		Cache:      taskCache,
		Locks:      lockService,
		Perms:      perms,
		Metrics:    scoreRelay,
		Notifier:   notifier,
		Comments:   commentRepo,
		Realtime:   realtime,
		Logger:     zapLogger,
	})
	bundleService := bundleUC.New(bundleUC.Deps{
		Bundles: bundleRepo,
		Tasks:   taskRepo,
		Cache:   taskCache,
		Locks:   lockService,
		Perms:   perms,
		Logger:  zapLogger,
	})

	sweeper := services.NewSweeper(lockService, reviewService, zapLogger, services.SweeperConfig{
		Interval: cfg.Review.SweepInterval,
		LockTTL:  cfg.Review.LockTTL,
		ClaimTTL: cfg.Review.ClaimTTL,
	})
	sweeper.Start()
	manager.Register("sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	dispatcher := services.NewOutboxDispatcher(outboxStore, mon, redisClient, zapLogger, services.DispatcherConfig{
		Interval:   cfg.Outbox.SyncInterval,
		BatchSize:  50,
		MaxRetries: cfg.Outbox.MaxRetry,
		Channel:    cfg.Review.RealtimeChannel,
		QueueNotif: cfg.Review.NotifQueue,
		QueueScore: cfg.Review.ScoreQueue,
	})
	dispatcher.Start()
	manager.Register("outbox_dispatcher", func(ctx context.Context) error {
		dispatcher.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Review: apiHandler.NewReviewHandler(reviewService, ctxAdapter, zapLogger),
		Bundle: apiHandler.NewBundleHandler(bundleService, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
