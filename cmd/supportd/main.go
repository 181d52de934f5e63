package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/ingest"
	"github.com/spec-kit/support-desk/internal/mailer"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var (
		ticketRepo  repository.TicketRepository
		messageRepo repository.TicketMessageRepository
		ledgerRepo  repository.ProcessedEmailRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		messageRepo = repository.NewTicketMessageRepository(pool)
		ledgerRepo = repository.NewProcessedEmailRepository(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		messageRepo = repository.NewMemoryMessageRepository()
		// ledgerRepo stays nil: the dedup ledger logs its cache-only mode
	}

	outboundMailer := mailer.NewLogMailer(logger, cfg.Notification.EmailFrom)
	ledger := service.NewDedupLedger(ledgerRepo, logger)
	responder := service.NewResponder(ticketRepo, messageRepo, outboundMailer, logger, metrics)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		Ledger:      ledger,
		Responder:   responder,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		SLAWindow:   cfg.Support.SLAWindow(),
	})

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()

	if cfg.Support.Enabled {
		poller := ingest.NewPoller(cfg.Mailbox, ingest.NewIMAPMailbox(cfg.Mailbox), ticketService, logger)
		if poller.Start(ctx) {
			defer poller.Stop()
		}

		monitor := service.NewSLAMonitor(ticketRepo, ticketService, outboundMailer, redis,
			cfg.Support.EscalationRecipients, cfg.Support.SweepInterval(), logger, metrics)
		monitor.Start(ctx)
		defer monitor.Stop()
	} else {
		logger.Info("support pipeline disabled by configuration")
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
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
