package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milkman/internal/config"
	"github.com/mamadbah2/milkman/internal/repository"
	"github.com/mamadbah2/milkman/internal/repository/memory"
	"github.com/mamadbah2/milkman/internal/repository/mongodb"
	"github.com/mamadbah2/milkman/internal/repository/sheets"
	"github.com/mamadbah2/milkman/internal/scheduler"
	"github.com/mamadbah2/milkman/internal/server/handlers"
	"github.com/mamadbah2/milkman/internal/server/router"
	diarysvc "github.com/mamadbah2/milkman/internal/service/diary"
	reportingsvc "github.com/mamadbah2/milkman/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/milkman/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/milkman/pkg/clients/whatsapp"
	"github.com/mamadbah2/milkman/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	store, err := openStore(context.Background(), cfg)
	if err != nil {
		baseLogger.Fatal("failed to init record store", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close record store", zap.Error(err))
		}
	}()
	baseLogger.Info("record store ready", zap.String("driver", cfg.Store.Driver))

	var sheetsRepo sheets.Repository
	if cfg.Sheets.Enabled() {
		repo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsRepo = repo
	} else {
		baseLogger.Warn("google sheets not configured, sheet export disabled")
	}

	var messenger whatsappsvc.Messenger
	if cfg.WhatsApp.Enabled() {
		messenger = whatsappsvc.NewMetaWhatsAppService(whatsappclient.NewClient(cfg.WhatsApp), baseLogger.Named("svc.whatsapp"))
		baseLogger.Info("whatsapp messaging enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, balance reminders disabled")
	}

	diarySvc := diarysvc.NewService(store, loc, baseLogger.Named("svc.diary"))
	reportingSvc := reportingsvc.NewService(diarySvc, store, sheetsRepo, loc, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Handlers{
		Accounts: handlers.AccountMiddleware(diarySvc, cfg.Accounts, baseLogger.Named("handlers.accounts")),
		Records:  handlers.NewRecordsHandler(diarySvc, baseLogger.Named("handlers.records")),
		Reports:  handlers.NewReportsHandler(reportingSvc, messenger, baseLogger.Named("handlers.reports")),
		Admin:    handlers.NewAdminHandler(diarySvc, baseLogger.Named("handlers.admin")),
	}, router.Options{MetricsEnabled: cfg.Server.MetricsEnabled}, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, store, reportingSvc, messenger, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		return memory.New(), nil
	}
	repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
