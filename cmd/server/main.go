package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/cimara/stockledger/internal/config"
	"github.com/cimara/stockledger/internal/registry"
	"github.com/cimara/stockledger/internal/repository"
	"github.com/cimara/stockledger/internal/repository/mongodb"
	"github.com/cimara/stockledger/internal/scheduler"
	"github.com/cimara/stockledger/internal/server/handlers"
	"github.com/cimara/stockledger/internal/server/router"
	reportingsvc "github.com/cimara/stockledger/internal/service/reporting"
	withdrawalsvc "github.com/cimara/stockledger/internal/service/withdrawal"
	"github.com/cimara/stockledger/pkg/clients/webhook"
	"github.com/cimara/stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(os.Getenv("LOG_LEVEL")))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoClient, err := mongodb.NewClient(context.Background(), cfg.MongoDB.URI)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb client", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	descriptors := registry.Descriptors(cfg.MongoDB.WarehouseDB, cfg.MongoDB.SiteDBs)
	stores, err := registry.New(descriptors, func(dbName string) repository.Store {
		return mongoClient.Store(dbName)
	})
	if err != nil {
		baseLogger.Fatal("failed to build store registry", zap.Error(err))
	}

	var notifier webhook.Notifier = webhook.Nop{}
	if cfg.Alerts.WebhookURL != "" {
		notifier = webhook.NewClient(cfg.Alerts.WebhookURL)
		baseLogger.Info("alert webhook enabled")
	} else {
		baseLogger.Warn("ALERT_WEBHOOK_URL missing, ops alerts will only be logged")
	}

	withdrawalSvc := withdrawalsvc.NewService(stores, notifier, baseLogger.Named("svc.withdrawal"))
	reportingSvc := reportingsvc.NewService(stores, cfg.Reporting.StoreTimeout, baseLogger.Named("svc.reporting"))

	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalSvc, stores, baseLogger.Named("handlers.withdrawal"))
	inventoryHandler := handlers.NewInventoryHandler(stores, baseLogger.Named("handlers.inventory"))
	reportHandler := handlers.NewReportHandler(reportingSvc, baseLogger.Named("handlers.report"))
	engine := router.New(withdrawalHandler, inventoryHandler, reportHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Alerts, reportingSvc, notifier, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
