package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/comanda-pos/comanda/internal/app"
	"github.com/comanda-pos/comanda/internal/audit"
	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/expenses"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/observability"
	"github.com/comanda-pos/comanda/internal/platform/cache"
	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/promotions"
	"github.com/comanda-pos/comanda/internal/reports"
	"github.com/comanda-pos/comanda/internal/sales"
	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/workers"
	"github.com/comanda-pos/comanda/jobs"
	"github.com/comanda-pos/comanda/report"
)

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
	shared.SetLocale(cfg.AppLocale)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewLowStockNotifier(redisClient, jobClient, cfg.LowStockAlertTTL)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, catalogRepo, auditLogger, notifier, logger)

	promotionsService := promotions.NewService(promotions.NewRepository(dbpool), catalogRepo, auditLogger)
	workersService := workers.NewService(workers.NewRepository(dbpool), auditLogger)
	registerService := cashregister.NewService(cashregister.NewRepository(dbpool), auditLogger)
	expensesService := expenses.NewService(expenses.NewRepository(dbpool), auditLogger)
	salesService := sales.NewService(
		sales.NewRepository(dbpool),
		auditLogger,
		idempotencyStore,
		notifier,
		metrics,
		logger,
		sales.ServiceConfig{MaxRetries: cfg.SaleMaxRetries},
	)
	reportsService := reports.NewService(reports.NewRepository(dbpool))
	reportsHandler := reports.NewHandler(logger, reportsService)
	if cfg.GotenbergURL != "" {
		pdfClient := report.NewClient(cfg.GotenbergURL)
		if err := pdfClient.Ping(ctx); err != nil {
			logger.Warn("gotenberg ping", slog.Any("error", err))
		}
		reportsHandler.WithPDF(report.NewDailyRenderer(pdfClient))
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Metrics:             metrics,
		CatalogHandler:      catalog.NewHandler(logger, catalogService),
		InventoryHandler:    inventory.NewHandler(logger, inventoryService),
		PromotionsHandler:   promotions.NewHandler(logger, promotionsService),
		WorkersHandler:      workers.NewHandler(logger, workersService),
		CashRegisterHandler: cashregister.NewHandler(logger, registerService),
		ExpensesHandler:     expenses.NewHandler(logger, expensesService),
		SalesHandler:        sales.NewHandler(logger, salesService),
		ReportsHandler:      reportsHandler,
		AuditHandler:        audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		JobHandler:          jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
