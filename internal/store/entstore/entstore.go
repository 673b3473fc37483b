// Package entstore is a store.Driver over database/sql, the layer ent
// generates code against. It shares the Postgres schema with the sqlx driver
// and reports connection pool statistics as OpenTelemetry metrics.
package entstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq" // postgres driver
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/store/postgres"
)

func init() {
	store.Register("ent", open)
}

// DB is an instrumented connection pool.
type DB struct {
	*sql.DB
	stats metric.Registration
}

// Close stops reporting pool metrics and closes the pool.
func (db *DB) Close() error {
	var errs []error
	if db.stats != nil {
		errs = append(errs, db.stats.Unregister())
	}
	return errors.Join(append(errs, db.DB.Close())...)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if _, err := db.ExecContext(ctx, postgres.Schema); err != nil {
			return nil, errors.Join(fmt.Errorf("applying schema: %w", err), db.Close())
		}
	}
	return &store.Repositories{
		Players:  NewPlayerRepo(db.DB),
		Sessions: NewSessionRepo(db.DB, clk),
		Events:   NewEventStore(db.DB, clk),
		Closer:   db,
		Ping:     db.PingContext,
	}, nil
}

// Connect opens the pool through otelsql and checks it is reachable.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	attrs := otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBNamespace(cfg.DBName))

	sqlDB, err := otelsql.Open("postgres", cfg.DSN(), attrs)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("pinging database: %w", err), sqlDB.Close())
	}

	reg, err := otelsql.RegisterDBStatsMetrics(sqlDB, attrs)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("registering pool metrics: %w", err), sqlDB.Close())
	}
	return &DB{DB: sqlDB, stats: reg}, nil
}
