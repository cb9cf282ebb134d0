package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/alexivanou/geocity-etl/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

// NewMigrate builds a migrate instance for the configured database.
//
// SQLite migrations run on db itself, since an in-memory database only exists on its
// connection; closing that instance closes db too. Postgres migrations open their own
// connection.
func NewMigrate(db *sqlx.DB, cfg config.DBConfig) (*migrate.Migrate, error) {
	sourceDir := "postgres"
	if cfg.IsMemory() {
		sourceDir = "sqlite"
	}

	source, err := iofs.New(migrations.FS, sourceDir)
	if err != nil {
		return nil, fmt.Errorf("could not open migration source: %w", err)
	}

	if !cfg.IsMemory() {
		m, err := migrate.NewWithSourceInstance("iofs", source, MigrateURL(cfg))
		if err != nil {
			return nil, fmt.Errorf("could not create migrate instance: %w", err)
		}
		return m, nil
	}

	// Use driver instance directly to avoid DSN parsing issues with in-memory SQLite
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateURL returns the golang-migrate database URL for a postgres configuration
func MigrateURL(cfg config.DBConfig) string {
	return strings.Replace(cfg.DSN(), "postgres://", "pgx5://", 1)
}

// RunMigrations applies all pending migrations. An up-to-date schema is left untouched.
func RunMigrations(db *sqlx.DB, cfg config.DBConfig) error {
	return withMigrate(db, cfg, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// ResetMigrations rolls back every migration, dropping all tables and their data
func ResetMigrations(db *sqlx.DB, cfg config.DBConfig) error {
	return withMigrate(db, cfg, func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		return nil
	})
}

func withMigrate(db *sqlx.DB, cfg config.DBConfig, fn func(*migrate.Migrate) error) error {
	m, err := NewMigrate(db, cfg)
	if err != nil {
		return err
	}
	if !cfg.IsMemory() {
		defer m.Close()
	}
	return fn(m)
}
