package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elecrm_backend/internal/callstatus"
	"elecrm_backend/internal/events"
	apphttp "elecrm_backend/internal/http"
	"elecrm_backend/internal/http/router"
	"elecrm_backend/internal/listener"
	"elecrm_backend/internal/presence"
	"elecrm_backend/internal/realtime"
	"elecrm_backend/internal/scheduler"
	"elecrm_backend/internal/spitfire"
	"elecrm_backend/migrations"
	"elecrm_backend/platform/config"
	"elecrm_backend/platform/db"
	"elecrm_backend/platform/logger"
	"elecrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	schedClient, closeScheduler := initScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Realtime hub fans bus events out to connected WebSocket clients
	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	presenceService := presence.NewService(presence.NewRepository(pool), eventBus, val, log)
	hub.SetPresenceHandler(presenceService)

	// Broadcast relay registers first so clients observe every event even
	// when a downstream subscriber fails
	realtime.RegisterSubscribers(eventBus, hub)

	if schedClient != nil {
		spitfire.RegisterExportTrigger(eventBus, schedClient, log)
	} else {
		log.Warn("REDIS_URL not configured; dialer export disabled")
	}

	// CDC listener turns database notifications into domain events
	listenerService := listener.NewService(
		listener.New(pool, cfg.GetDatabaseURL(), log),
		listener.NewAuditRepository(pool),
		eventBus,
		cfg,
		log,
	)
	if err := listenerService.Start(ctx); err != nil {
		log.Error("failed to start change listener", "error", err)
		panic("failed to start change listener: " + err.Error())
	}
	log.Info("change listener started", "lead_channel", cfg.GetLeadChannel(), "queue_channel", cfg.GetQueueChannel())

	var archiver callstatus.Archiver
	if schedClient != nil {
		archiver = schedClient
	}
	callStatusService := callstatus.NewService(callstatus.NewRepository(pool), eventBus, archiver, cfg, log)
	callStatusModule := callstatus.NewModule(callstatus.NewHandler(callStatusService))

	realtimeModule := realtime.NewModule(hub)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			callStatusModule,
			realtimeModule,
		},
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
