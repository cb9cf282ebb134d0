package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/internal/database"
	"github.com/alexivanou/geocity-etl/internal/model"
	"github.com/alexivanou/geocity-etl/internal/notify"
	"github.com/alexivanou/geocity-etl/internal/repository"
	"github.com/alexivanou/geocity-etl/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env holds what every subcommand needs; it is filled by the root command's pre-run hook
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "City, weather and flight ETL",
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		newSetupCmd(e),
		newAddCitiesCmd(e),
		syncCmd(e, "add-airports", "Look up airports around all stored cities",
			func(o *service.Orchestrator) syncFunc { return o.AddAirports }),
		syncCmd(e, "fetch-population", "Rescrape the population of all stored cities",
			func(o *service.Orchestrator) syncFunc { return o.FetchPopulation }),
		syncCmd(e, "fetch-weather", "Store a forecast snapshot for all stored cities",
			func(o *service.Orchestrator) syncFunc { return o.FetchWeather }),
		syncCmd(e, "fetch-flights", "Store tomorrow's arrivals for all stored airports",
			func(o *service.Orchestrator) syncFunc { return o.FetchFlights }),
	)
	return rootCmd
}

type syncFunc func(context.Context) (model.Summary, error)

func newSetupCmd(e *env) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the database and schema if they do not exist",
		Long: `Create the database and apply all migrations. An existing database is left
untouched unless --reset is given (or DB_RESET is set), which drops all data first.
No other command ever resets the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drop := reset || e.cfg.Sync.Reset
			db, err := database.Open(cmd.Context(), e.cfg.DB, drop, e.logger)
			if err != nil {
				return err
			}
			defer db.Close()
			e.logger.Info("Database is ready", zap.String("type", string(e.cfg.DB.Type)), zap.Bool("reset", drop))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Drop all existing data")
	return cmd
}

func newAddCitiesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add-cities [city...]",
		Short: "Add cities, defaulting to SYNC_CITIES",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = e.cfg.Sync.Cities
			}
			if len(names) == 0 {
				return fmt.Errorf("no cities given and SYNC_CITIES is empty")
			}
			return e.run(cmd.Context(), func(o *service.Orchestrator) syncFunc {
				return func(ctx context.Context) (model.Summary, error) {
					return o.AddCities(ctx, names)
				}
			})
		},
	}
}

func syncCmd(e *env, use, short string, op func(*service.Orchestrator) syncFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.run(cmd.Context(), op)
		},
	}
}

// run opens the database, runs one operation and prints its summary as JSON
func (e *env) run(ctx context.Context, op func(*service.Orchestrator) syncFunc) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, e.cfg.DB, false, e.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	notifier, err := notify.New(e.cfg.NATS, e.logger)
	if err != nil {
		return err
	}
	defer notifier.Close()

	o, err := service.New(e.cfg, repository.NewRepositories(db, e.cfg.DB.Type), notifier, e.logger)
	if err != nil {
		return err
	}

	summary, err := op(o)(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
