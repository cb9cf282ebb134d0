// Package scheduler runs sync operations periodically.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Job is a sync operation run every Interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (model.Summary, error)
}

// Scheduler periodically runs sync jobs. Each job runs once right after Start.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	logger    *zap.Logger
}

// New creates a new Scheduler.
func New(jobs []Job, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      jobs,
		logger:    logger,
	}
}

// Start schedules all jobs and starts the underlying scheduler. Jobs receive ctx, so
// cancelling it aborts runs in progress.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive, got %s", job.Name, job.Interval)
		}

		job := job
		// A run that outlasts its interval delays the next one instead of overlapping it.
		_, err := s.scheduler.Every(job.Interval).SingletonMode().Do(func() {
			s.run(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		s.logger.Info("Scheduled job", zap.String("job", job.Name), zap.Duration("interval", job.Interval))
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	s.logger.Info("Running job", zap.String("job", job.Name))

	summary, err := job.Run(ctx)
	if err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	s.logger.Info("Job completed",
		zap.String("job", job.Name),
		zap.Int("inserted", summary.Inserted),
		zap.Int("warnings", summary.Warnings),
		zap.Duration("took", time.Since(started)),
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
