// Package postgres stores transcripts in PostgreSQL through the pgx driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/papercomputeco/fleet/pkg/transcript/sqldriver"
)

const (
	maxOpenConns    = 8
	maxIdleConns    = 2
	connMaxIdleTime = 5 * time.Minute
)

// Driver implements transcript.Driver on a PostgreSQL database.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver connects to connStr, either a keyword/value string
// ("host=localhost user=fleet dbname=fleet sslmode=disable") or a
// postgres:// URI, and creates the transcripts table if missing.
func NewDriver(ctx context.Context, connStr string) (*Driver, error) {
	cfg, err := pgx.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	drv := entsql.OpenDB(dialect.Postgres, db)

	d, err := sqldriver.New(ctx, drv)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Driver{Driver: d}, nil
}
