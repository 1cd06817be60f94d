package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

type stores struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	history  repository.TicketHistoryRepository
}

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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	rabbit, err := persistence.NewRabbitMQ(cfg.Notification, logger)
	if err != nil {
		logger.Warn("notification queue unavailable; notifications are logged only", zap.Error(err))
	}
	if rabbit != nil {
		defer rabbit.Close()
	}

	repos := buildStores(pg)
	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if redis.Enabled() {
		revocations = persistence.NewRevocationStore(redis)
	}

	notifiers := notify.Fanout{notify.NewLogNotifier(logger, cfg.Notification.EmailFrom)}
	if rabbit != nil {
		notifiers = append(notifiers, notify.NewAMQPNotifier(rabbit, cfg.Notification.EmailFrom))
	}
	notificationWorker := worker.NewNotificationWorker(notifiers, logger, cfg.Notification.WorkerBuffer)
	notificationWorker.Start()

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewNotificationService(dispatcher, notificationWorker, logger).RegisterHandlers()
	historyService := service.NewHistoryService(repos.history, repos.tickets)
	historyService.RegisterHandlers(dispatcher)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    repos.users,
		Revocations: revocations,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.tickets,
		UserRepo:   repos.users,
		Dispatcher: dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		CommentRepo: repos.comments,
		TicketRepo:  repos.tickets,
		UserRepo:    repos.users,
		Dispatcher:  dispatcher,
	})

	var limiter *httptransport.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = httptransport.NewRateLimiter(redis.Client, cfg.RateLimit.LoginPerMinute, logger)
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewServer(httptransport.ServerOptions{
		Name:           cfg.App.Name,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
	}, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, rabbit, metrics),
		Auth: handlers.NewAuthHandler(authService, handlers.CookieSettings{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.IsProduction(),
		}),
		Tickets:     handlers.NewTicketsHandler(ticketService, historyService),
		Comments:    handlers.NewCommentsHandler(commentService),
		Pages:       handlers.NewPagesHandler(ticketService, commentService, historyService),
		Guard:       auth.NewSessionGuard(authService.TokenManager(), repos.users, revocations, cfg.Auth.CookieName, logger),
		RateLimiter: limiter,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notificationWorker.Stop()
}

// buildStores picks Postgres when a pool is open and the in-memory store otherwise.
func buildStores(pg *persistence.Postgres) stores {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return stores{
			users:    repository.NewUserRepository(pool),
			tickets:  repository.NewTicketRepository(pool),
			comments: repository.NewCommentRepository(pool),
			history:  repository.NewTicketHistoryRepository(pool),
		}
	}
	mem := memory.NewStore()
	return stores{users: mem.Users(), tickets: mem.Tickets(), comments: mem.Comments(), history: mem.History()}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
