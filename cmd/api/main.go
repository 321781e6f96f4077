package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-desk/internal/api/http"
	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/chatcmd"
	"github.com/spec-kit/ticket-desk/internal/clock"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/persistence"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/internal/sla"
	"github.com/spec-kit/ticket-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	if cfg.Postgres.RunMigrations && pg.Pool != nil {
		if err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	loc := cfg.SLA.Location()
	clk := clock.System{}

	engine, err := sla.NewEngine(sla.DefaultTable(),
		sla.WithLocation(loc),
		sla.WithWarningWindow(cfg.SLA.WarningWindow()),
		sla.WithClock(clk),
	)
	if err != nil {
		logger.Fatal("invalid sla table", zap.Error(err))
	}

	ticketRepo := repository.NewTicketRepository(pg.Pool)
	messageRepo := repository.NewTicketMessageRepository(pg.Pool)
	auditRepo := repository.NewAuditLogRepository(pg.Pool)
	shiftRepo := repository.NewShiftRepository(pg.Pool)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Notification,
		Metrics:    metrics,
		Location:   loc,
	})
	worker.StartNotificationWorker(notificationService)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		AuditRepo:   auditRepo,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Clock:       clk,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		Tickets:            ticketService,
		Interpreter:        chatcmd.NewInterpreter(shiftRepo, clk, loc),
		Locks:              persistence.NewLocker(redis, "cmdlock:"),
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		Logger:             logger,
		LockTTL:            cfg.Commands.LockTTL(),
		GeolocationTimeout: cfg.Commands.GeolocationTimeout(),
	})
	shiftService := service.NewShiftService(shiftRepo)
	sweepService := service.NewSLASweepService(service.SLASweepDependencies{
		TicketRepo: ticketRepo,
		AuditRepo:  auditRepo,
		Engine:     engine,
		Gate:       persistence.NewOnce(redis, "sla:notified:", cfg.SLA.DedupeTTL()),
		Notifier:   notificationService,
		Metrics:    metrics,
		Logger:     logger,
		Clock:      clk,
		Lookahead:  cfg.SLA.Lookahead(),
	})

	slaWorker, err := worker.NewSLAWorker(sweepService, cfg.SLA.SweepSchedule, cfg.SLA.SweepTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to schedule sla sweep", zap.Error(err))
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = slaWorker.Start(ctx)
	}()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:    handlers.NewTicketsHandler(ticketService, chatService),
		Shifts:     handlers.NewShiftsHandler(shiftService),
		SLA:        handlers.NewSLAHandler(engine, sweepService, clk, cfg.App.IsDevelopment()),
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, 60),
		Metrics:    metrics,
		CronSecret: cfg.SLA.CronSecret,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-workerDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
