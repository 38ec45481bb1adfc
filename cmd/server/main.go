package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/config"
	"github.com/mamadbah2/livestock/internal/repository/mongodb"
	"github.com/mamadbah2/livestock/internal/repository/sheets"
	"github.com/mamadbah2/livestock/internal/scheduler"
	"github.com/mamadbah2/livestock/internal/server/handlers"
	"github.com/mamadbah2/livestock/internal/server/router"
	"github.com/mamadbah2/livestock/internal/service/backfill"
	"github.com/mamadbah2/livestock/internal/service/cascade"
	"github.com/mamadbah2/livestock/internal/service/importer"
	"github.com/mamadbah2/livestock/pkg/cache"
	"github.com/mamadbah2/livestock/pkg/clients/webhook"
	"github.com/mamadbah2/livestock/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, err := mongodb.NewStore(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName, baseLogger.Named("repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	if err := store.EnsureIndexes(context.Background()); err != nil {
		baseLogger.Fatal("failed to ensure indexes", zap.Error(err))
	}

	var sheetSource importer.SheetSource
	if cfg.SheetsEnabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetSource = sheetsRepo
		baseLogger.Info("spreadsheet import source enabled")
	} else {
		baseLogger.Warn("spreadsheet import source not configured")
	}

	engine := cascade.NewEngine(store.Animals, store.Inventory, store.Finance, store.Records,
		cfg.Inventory.AllowNegativeStock, baseLogger.Named("svc.cascade"))
	importerSvc := importer.NewService(store.Imports, sheetSource, baseLogger.Named("svc.importer"))
	backfillSvc := backfill.NewService(store.Records, engine, cfg.Backfill.GracePeriod, baseLogger.Named("svc.backfill"))

	var notifier webhook.Client
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewClient(cfg.Webhook)
		baseLogger.Info("ops webhook enabled")
	}

	counts := cache.New(cfg.Cache.CountTTL)

	r := router.New(router.Handlers{
		Animals:   handlers.NewAnimalHandler(store.Animals, counts, baseLogger.Named("handlers.animals")),
		Records:   handlers.NewRecordHandler(store.Records, engine, baseLogger.Named("handlers.records")),
		Inventory: handlers.NewInventoryHandler(store.Inventory, baseLogger.Named("handlers.inventory")),
		Finance:   handlers.NewFinanceHandler(store.Finance, baseLogger.Named("handlers.finance")),
		Imports:   handlers.NewImportHandler(importerSvc, cfg.Import.MaxPayloadBytes, baseLogger.Named("handlers.imports")),
	}, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, backfillSvc, notifier, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
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
