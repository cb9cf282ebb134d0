package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for database/sql
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// sqlstateInvalidCatalogName is returned by postgres when the database does not exist
const sqlstateInvalidCatalogName = "3D000"

// Connect creates a database connection based on configuration using sqlx
func Connect(ctx context.Context, cfg config.DBConfig) (*sqlx.DB, error) {
	var driverName string
	var dsn string

	if cfg.IsMemory() {
		driverName = "sqlite3"
		dsn = cfg.DSN()
	} else {
		driverName = "pgx"
		dsn = cfg.DSN()
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Specific settings for SQLite to enable Foreign Keys
	if cfg.IsMemory() {
		// The pragma is per connection, so keep exactly one.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return db, nil
}

// Open connects to the configured database and makes sure the schema exists.
//
// A postgres database that does not exist yet is created on the fly; any other
// connection failure is returned. With reset set, all existing data is dropped first.
func Open(ctx context.Context, cfg config.DBConfig, reset bool, logger *zap.Logger) (*sqlx.DB, error) {
	if cfg.IsMemory() {
		db, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := setupSchema(db, cfg, reset); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	if reset {
		logger.Warn("Resetting database", zap.String("database", cfg.Name))
		if err := dropDatabase(ctx, cfg); err != nil {
			return nil, err
		}
	}

	db, err := Connect(ctx, cfg)
	if err != nil {
		if !IsMissingDatabase(err) {
			return nil, err
		}
		logger.Info("Database does not exist, creating it", zap.String("database", cfg.Name))
		if err := createDatabase(ctx, cfg); err != nil {
			return nil, err
		}
		if db, err = Connect(ctx, cfg); err != nil {
			return nil, err
		}
	}

	if err := RunMigrations(db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// IsMissingDatabase reports whether err signals that the target database does not exist
func IsMissingDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateInvalidCatalogName
}

func createDatabase(ctx context.Context, cfg config.DBConfig) error {
	return execMaintenance(ctx, cfg, "CREATE DATABASE "+pgx.Identifier{cfg.Name}.Sanitize())
}

func dropDatabase(ctx context.Context, cfg config.DBConfig) error {
	return execMaintenance(ctx, cfg, "DROP DATABASE IF EXISTS "+pgx.Identifier{cfg.Name}.Sanitize())
}

func execMaintenance(ctx context.Context, cfg config.DBConfig, stmt string) error {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.MaintenanceDSN())
	if err != nil {
		return fmt.Errorf("failed to connect to maintenance database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute %q: %w", stmt, err)
	}
	return nil
}

func setupSchema(db *sqlx.DB, cfg config.DBConfig, reset bool) error {
	if reset {
		if err := ResetMigrations(db, cfg); err != nil {
			return err
		}
	}
	return RunMigrations(db, cfg)
}
