package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quartermaster-app/quartermaster/internal/app"
	"github.com/quartermaster-app/quartermaster/internal/ledger"
	"github.com/quartermaster-app/quartermaster/internal/masterdata/items"
	"github.com/quartermaster-app/quartermaster/internal/masterdata/stores"
	"github.com/quartermaster-app/quartermaster/internal/platform/db"
	"github.com/quartermaster-app/quartermaster/internal/purchasing"
	"github.com/quartermaster-app/quartermaster/internal/sales"
	"github.com/quartermaster-app/quartermaster/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGConnLifetime})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, idempotencyStore)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(purchasingRepo, auditLogger)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService)

	itemsRepo := items.NewRepository(pool)
	itemsService := items.NewService(itemsRepo)
	itemsHandler := items.NewHandler(logger, itemsService)

	storesRepo := stores.NewRepository(pool)
	storesService := stores.NewService(storesRepo, purchasingRepo, salesRepo)
	storesHandler := stores.NewHandler(logger, storesService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		LedgerHandler:     ledgerHandler,
		PurchasingHandler: purchasingHandler,
		SalesHandler:      salesHandler,
		ItemsHandler:      itemsHandler,
		StoresHandler:     storesHandler,
		Pool:              pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
