package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/database"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/alexivanou/geocity-etl/internal/notify"
	"github.com/alexivanou/geocity-etl/internal/repository"
	"github.com/alexivanou/geocity-etl/internal/scheduler"
	"github.com/alexivanou/geocity-etl/internal/service"
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

	notifier, err := notify.New(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("Failed to set up notifier", zap.Error(err))
	}
	defer notifier.Close()

	svc, err := service.New(cfg, repository.NewRepositories(db, cfg.DB.Type), notifier, logger)
	if err != nil {
		logger.Fatal("Failed to create orchestrator", zap.Error(err))
	}

	if len(cfg.Sync.Cities) > 0 {
		if _, err := svc.AddCities(ctx, cfg.Sync.Cities); err != nil {
			logger.Error("Failed to add configured cities", zap.Error(err))
		}
	}

	s := scheduler.New([]scheduler.Job{
		{Name: model.OpFetchWeather, Interval: cfg.Scheduler.WeatherInterval, Run: svc.FetchWeather},
		{Name: model.OpFetchFlights, Interval: cfg.Scheduler.FlightsInterval, Run: svc.FetchFlights},
		{Name: model.OpFetchPopulation, Interval: cfg.Scheduler.PopulationInterval, Run: svc.FetchPopulation},
	}, logger)
	if err := s.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("Stopping scheduler...")
	s.Stop()
}
