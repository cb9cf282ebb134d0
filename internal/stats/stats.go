// Package stats reports what the sync operations have stored so far: row counts and
// sizes per table and, for the append-only snapshot tables, when they were last fed.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexivanou/geocity-etl/internal/config"
	"github.com/jmoiron/sqlx"
)

type Stats struct {
	Timestamp     time.Time     `json:"timestamp"`
	Database      DatabaseStats `json:"database"`
	UptimeSeconds int64         `json:"uptime_seconds"`
}

type DatabaseStats struct {
	Type         string      `json:"type"`
	TotalRecords int64       `json:"total_records"`
	SizeBytes    int64       `json:"size_bytes"`
	Tables       []TableStat `json:"tables"`
}

// TableStat describes one table. LastRetrieved is only set for snapshot tables holding rows.
type TableStat struct {
	Name          string     `json:"name"`
	RowCount      int64      `json:"row_count"`
	SizeBytes     int64      `json:"size_bytes,omitempty"`
	LastRetrieved *time.Time `json:"last_retrieved,omitempty"`
}

type Collector struct {
	db        *sqlx.DB
	config    config.DBConfig
	startTime time.Time
}

var (
	tables = []string{"cities", "population", "geo", "airports", "weather", "flights"}

	// snapshot tables carry a retrieved_at column
	snapshotTables = map[string]bool{"weather": true, "flights": true}
)

func NewCollector(db *sqlx.DB, cfg config.DBConfig) *Collector {
	return &Collector{
		db:        db,
		config:    cfg,
		startTime: time.Now(),
	}
}

func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Timestamp:     time.Now(),
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		Database:      DatabaseStats{Type: string(c.config.Type)},
	}

	if size, err := c.databaseSize(ctx); err == nil {
		stats.Database.SizeBytes = size
	}

	for _, table := range tables {
		stat, err := c.tableStat(ctx, table)
		if err != nil {
			return nil, err
		}
		stats.Database.Tables = append(stats.Database.Tables, stat)
		stats.Database.TotalRecords += stat.RowCount
	}

	return stats, nil
}

// Table returns the stat of the named table, if it was collected
func (s *Stats) Table(name string) (TableStat, bool) {
	for _, t := range s.Database.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableStat{}, false
}

func (c *Collector) databaseSize(ctx context.Context) (int64, error) {
	var size int64
	query := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
	if c.config.Type == config.DBTypePostgreSQL {
		query = "SELECT pg_database_size(current_database())"
	}
	err := c.db.GetContext(ctx, &size, query)
	return size, err
}

func (c *Collector) tableStat(ctx context.Context, table string) (TableStat, error) {
	stat := TableStat{Name: table}

	if err := c.db.GetContext(ctx, &stat.RowCount, "SELECT COUNT(*) FROM "+table); err != nil {
		return stat, fmt.Errorf("failed to count %s: %w", table, err)
	}

	// Sizes are best effort: dbstat is an optional sqlite extension
	if c.config.Type == config.DBTypePostgreSQL {
		_ = c.db.GetContext(ctx, &stat.SizeBytes, `SELECT COALESCE(pg_total_relation_size($1::regclass), 0)`, table)
	} else {
		_ = c.db.GetContext(ctx, &stat.SizeBytes, `SELECT COALESCE(SUM(pgsize), 0) FROM dbstat WHERE name = ?`, table)
	}

	if snapshotTables[table] && stat.RowCount > 0 {
		last, err := c.lastRetrieved(ctx, table)
		if err != nil {
			return stat, err
		}
		stat.LastRetrieved = last
	}
	return stat, nil
}

// lastRetrieved selects the column itself rather than MAX() so sqlite reports it
// with its declared DATETIME type and the driver returns a time.Time.
func (c *Collector) lastRetrieved(ctx context.Context, table string) (*time.Time, error) {
	var last time.Time
	err := c.db.GetContext(ctx, &last, "SELECT retrieved_at FROM "+table+" ORDER BY retrieved_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last retrieval of %s: %w", table, err)
	}
	last = last.UTC()
	return &last, nil
}
