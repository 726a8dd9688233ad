package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gwhttp "github.com/Strob0t/GroupWarden/internal/adapter/http"
	"github.com/Strob0t/GroupWarden/internal/adapter/modscript"
	gwnats "github.com/Strob0t/GroupWarden/internal/adapter/nats"
	"github.com/Strob0t/GroupWarden/internal/adapter/otel"
	"github.com/Strob0t/GroupWarden/internal/adapter/postgres"
	"github.com/Strob0t/GroupWarden/internal/adapter/ristretto"
	"github.com/Strob0t/GroupWarden/internal/adapter/wabridge"
	"github.com/Strob0t/GroupWarden/internal/adapter/wanotify"
	"github.com/Strob0t/GroupWarden/internal/adapter/ws"
	"github.com/Strob0t/GroupWarden/internal/config"
	"github.com/Strob0t/GroupWarden/internal/domain/report"
	"github.com/Strob0t/GroupWarden/internal/logger"
	"github.com/Strob0t/GroupWarden/internal/port/notifier"
	"github.com/Strob0t/GroupWarden/internal/port/transport"
	"github.com/Strob0t/GroupWarden/internal/resilience"
	"github.com/Strob0t/GroupWarden/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := runSetup(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "setup failed:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"group", cfg.Moderation.GroupID,
		"decision_timeout", cfg.Decision.Timeout,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Telemetry ---
	shutdownMetrics, err := otel.InitMetrics(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = shutdownMetrics(shutdownCtx)
	}()

	// --- Infrastructure ---

	queue, err := gwnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Optional audit store; an empty DSN runs fully in-memory.
	var store *postgres.Store
	if cfg.Postgres.DSN != "" {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		slog.Info("audit store connected")
	}

	contacts, err := ristretto.New(cfg.Cache.MaxEntries)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer contacts.Close()

	// --- Core services ---

	tp := wabridge.New(queue)
	client := modscript.New(cfg.Decision)
	roster := service.NewRosterStore()
	ledger := service.NewReviewLedger(roster, cfg.Moderation.ReviewRetention)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	notify := service.NewNotificationService(
		[]notifier.Notifier{wanotify.New(tp, roster)}, nil)

	hub := ws.NewHub()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	coord := service.NewCoordinator(
		cfg.Moderation, tp, client, roster, ledger, notify, breaker,
		cfg.Decision.MaxConcurrent,
	).
		WithContacts(contacts, cfg.Cache.ContactTTL).
		WithMetrics(metrics).
		WithEvents(hub, gwnats.NewEventPublisher(queue))
	if store != nil {
		coord.WithAudit(store)
	}

	sched, err := report.ParseSchedule(cfg.Moderation.ReportTime)
	if err != nil {
		return fmt.Errorf("report schedule: %w", err)
	}
	reports := service.NewReportService(sched, client, roster, notify)
	if store != nil {
		reports.WithAudit(store)
	}

	// --- Event wiring ---

	stopTransport, err := tp.Start(ctx, transport.Handlers{
		Message:    coord.HandleMessage,
		Reaction:   coord.HandleReaction,
		Membership: coord.HandleMembership,
	})
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	defer stopTransport()

	if err := coord.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	ledger.StartSweeper(ctx, cfg.Moderation.SweepInterval, coord.HandleExpired)
	reports.Start(ctx)

	// --- Admin API ---

	handlers := &gwhttp.Handlers{
		Roster:      roster,
		Ledger:      ledger,
		Coordinator: coord,
		Reports:     reports,
		Queue:       queue,
		StartedAt:   time.Now(),
	}
	if store != nil {
		handlers.Audit = store
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           gwhttp.NewRouter(handlers, hub, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting admin api", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down")
	cancel()

	// Let in-flight classifications finish before the process exits.
	coord.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
