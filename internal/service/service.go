// Package service holds the sync orchestrator: it decides which entities are missing or
// stale, fetches them through the locators and providers and persists the new rows.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/alexivanou/geocity-etl/internal/notify"
	"github.com/alexivanou/geocity-etl/internal/repository"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Orchestrator runs the sync operations against storage
type Orchestrator struct {
	repos    *repository.Container
	cities   CityLocator
	airports AirportLocator
	weather  WeatherProvider
	flights  FlightProvider
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrchestrator creates a new orchestrator instance
func NewOrchestrator(
	repos *repository.Container,
	cities CityLocator,
	airports AirportLocator,
	weather WeatherProvider,
	flights FlightProvider,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		repos:    repos,
		cities:   cities,
		airports: airports,
		weather:  weather,
		flights:  flights,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// warn logs every error combined in err, usually Result.Err, and counts them into the summary
func (o *Orchestrator) warn(summary *model.Summary, err error) {
	for _, e := range multierr.Errors(err) {
		fields := []zap.Field{zap.String("operation", summary.Operation)}
		var f model.Failure
		if errors.As(e, &f) {
			fields = append(fields, zap.Int("index", f.Index), zap.String("key", f.Key), zap.Error(f.Err))
		} else {
			fields = append(fields, zap.Error(e))
		}
		o.logger.Warn("Item skipped", fields...)
		summary.Warnings++
	}
}

// finish logs the summary and publishes the sync event. Publish errors are only logged.
func (o *Orchestrator) finish(ctx context.Context, summary model.Summary) model.Summary {
	o.logger.Info("Sync finished",
		zap.String("operation", summary.Operation),
		zap.Int("requested", summary.Requested),
		zap.Int("fetched", summary.Fetched),
		zap.Int("inserted", summary.Inserted),
		zap.Int("warnings", summary.Warnings),
	)

	event := model.SyncEvent{Summary: summary, CompletedAt: o.now().UTC()}
	if err := o.notifier.Publish(ctx, event); err != nil {
		o.logger.Warn("Failed to publish sync event", zap.String("operation", summary.Operation), zap.Error(err))
	}
	return summary
}
