package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexivanou/geocity-etl/internal/api"
	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/database"
	"github.com/alexivanou/geocity-etl/internal/notify"
	"github.com/alexivanou/geocity-etl/internal/repository"
	"github.com/alexivanou/geocity-etl/internal/service"
	"github.com/alexivanou/geocity-etl/internal/stats"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB, false, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to database", zap.String("type", string(cfg.DB.Type)))

	notifier, err := notify.New(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to set up notifier", zap.Error(err))
	}
	defer notifier.Close()

	repos := repository.NewRepositories(db, cfg.DB.Type)
	svc, err := service.New(cfg, repos, notifier, logger)
	if err != nil {
		logger.Fatal("Failed to create orchestrator", zap.Error(err))
	}

	isEmpty, err := repository.IsDatabaseEmpty(ctx, db)
	if err != nil {
		logger.Warn("Failed to check if database is empty", zap.Error(err))
	} else if isEmpty && len(cfg.Sync.Cities) > 0 {
		logger.Info("Database is empty, adding configured cities", zap.Strings("cities", cfg.Sync.Cities))
		if _, err := svc.AddCities(ctx, cfg.Sync.Cities); err != nil {
			logger.Error("Failed to add configured cities", zap.Error(err))
		}
	}

	statsCollector := stats.NewCollector(db, cfg.DB)
	router := api.NewRouter(svc, statsCollector, logger)

	// Scraping every city can take minutes, so no write timeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
