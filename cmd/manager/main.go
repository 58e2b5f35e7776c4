package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/coffee-export/export-manager/cmd/manager/cli"
	"github.com/coffee-export/export-manager/internal/app"
	"github.com/coffee-export/export-manager/internal/auth"
	"github.com/coffee-export/export-manager/internal/crm"
	"github.com/coffee-export/export-manager/internal/expenses"
	"github.com/coffee-export/export-manager/internal/invoicing"
	"github.com/coffee-export/export-manager/internal/observability"
	"github.com/coffee-export/export-manager/internal/platform/cache"
	"github.com/coffee-export/export-manager/internal/platform/db"
	"github.com/coffee-export/export-manager/internal/reporting"
	"github.com/coffee-export/export-manager/internal/sales"
	"github.com/coffee-export/export-manager/internal/shared"
	"github.com/coffee-export/export-manager/jobs"
)

const usage = `usage: manager [serve | migrate | jobs <trigger TASK | stats [--json] | list>]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	case "migrate":
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	case "jobs":
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		code := jobsCLI.Run(ctx, cli.JobsOptions{Args: args})
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	default:
		_, _ = fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			return err
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns, MaxConnIdleTime: cfg.PGMaxIdle})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	clock := shared.Clock(shared.SystemClock)
	services := app.NewServices(cfg, pool, redisClient, clock, logger)

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	notifier := auth.NewNotifier(redisClient, cfg.SessionChannel, logger)
	notifier.Listen(func(ev auth.SessionEvent) {
		logger.Info("session changed",
			slog.String("type", string(ev.Type)),
			slog.String("user_id", ev.UserID),
			slog.Time("at", ev.At),
		)
	})
	stopNotifier, err := notifier.Start(ctx)
	if err != nil {
		return err
	}
	defer stopNotifier()

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      auth.NewHandler(logger, services.Auth, sessionManager, csrfManager, notifier, clock),
		CRMHandler:       crm.NewHandler(logger, services.CRM),
		SalesHandler:     sales.NewHandler(logger, services.Sales),
		InvoicingHandler: invoicing.NewHandler(logger, services.Invoicing).WithObserver(metrics),
		ExpensesHandler:  expenses.NewHandler(logger, services.Expenses),
		ReportingHandler: reporting.NewHandler(logger, services.Reporting),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
