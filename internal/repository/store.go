package repository

import (
	"context"
	"fmt"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/jmoiron/sqlx"
)

// Rows per multi-row INSERT. SQLite caps bound variables at 999 by default,
// postgres at 65535; the widest row (weather) binds 9 values.
const (
	pgChunkSize     = 2000
	sqliteChunkSize = 100
)

func chunkSizeFor(dbType config.DBType) int {
	if dbType == config.DBTypePostgreSQL {
		return pgChunkSize
	}
	return sqliteChunkSize
}

type store struct {
	db        *sqlx.DB
	chunkSize int
}

// bulkInsert runs a named multi-row INSERT in chunks. Statements are not wrapped in a
// transaction, a failing chunk leaves earlier chunks in place.
func bulkInsert[T any](ctx context.Context, s *store, query string, rows []T) error {
	for i := 0; i < len(rows); i += s.chunkSize {
		end := i + s.chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		if _, err := s.db.NamedExecContext(ctx, query, rows[i:end]); err != nil {
			return fmt.Errorf("bulk insert of rows %d-%d failed: %w", i, end-1, err)
		}
	}
	return nil
}
