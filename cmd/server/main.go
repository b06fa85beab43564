package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmolenaar/fundtracker/internal/api"
	"github.com/jmolenaar/fundtracker/internal/config"
	"github.com/jmolenaar/fundtracker/internal/database"
	"github.com/jmolenaar/fundtracker/internal/ibkr"
	"github.com/jmolenaar/fundtracker/internal/repository"
	"github.com/jmolenaar/fundtracker/internal/scheduler"
	"github.com/jmolenaar/fundtracker/internal/service"
	"github.com/jmolenaar/fundtracker/internal/yahoo"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database", "path", cfg.Database.Path)

	// Repositories
	portfolioRepo := repository.NewPortfolioRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	fundRepo := repository.NewFundRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	dividendRepo := repository.NewDividendRepository(db)
	realizedGainRepo := repository.NewRealizedGainRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	flexRepo := repository.NewFlexRepository(db)

	// Services
	loader := service.NewDataLoader(holdingRepo, transactionRepo, dividendRepo, fundRepo, realizedGainRepo)
	realizedGainSvc := service.NewRealizedGainService(realizedGainRepo)
	portfolioSvc := service.NewPortfolioService(portfolioRepo, holdingRepo, fundRepo, realizedGainRepo, snapshotRepo, loader)
	valuationSvc := service.NewValuationService(portfolioRepo, holdingRepo, transactionRepo, snapshotRepo, loader)
	fundSvc := service.NewFundService(fundRepo, snapshotRepo, yahoo.NewFinanceClient())
	transactionSvc := service.NewTransactionService(db, transactionRepo, holdingRepo, snapshotRepo, realizedGainRepo, realizedGainSvc)
	dividendSvc := service.NewDividendService(db, dividendRepo, holdingRepo, fundRepo, transactionRepo, snapshotRepo, realizedGainRepo, realizedGainSvc)

	// The flex integration needs a fernet key to encrypt the IBKR token at
	// rest; without one the feature stays off.
	var flexSvc *service.FlexService
	if cfg.Auth.FernetKey != "" {
		flexSvc, err = service.NewFlexService(db, flexRepo, fundRepo, holdingRepo, portfolioRepo,
			transactionRepo, dividendRepo, snapshotRepo, realizedGainRepo, realizedGainSvc,
			ibkr.NewFlexClient(), cfg.Auth.FernetKey)
		if err != nil {
			logger.Error("failed to initialise flex service", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("FERNET_KEY not set, flex integration disabled")
	}

	router := api.NewRouter(db, api.Services{
		Portfolio:   portfolioSvc,
		Valuation:   valuationSvc,
		Fund:        fundSvc,
		Transaction: transactionSvc,
		Dividend:    dividendSvc,
		Flex:        flexSvc,
	}, cfg)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(fundSvc, valuationSvc, flexSvc, logger)
		if err := sched.Start(cfg.Scheduler.Schedule); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
