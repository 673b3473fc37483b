package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jensholdgaard/auctioneer/internal/clock"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/store"
	"github.com/jensholdgaard/auctioneer/internal/store/postgres"
)

// startPostgres runs a throwaway Postgres and returns the config that
// reaches it. The container is removed when the test ends.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	cfg := config.DatabaseConfig{
		Driver:   "sqlx",
		User:     "auction",
		Password: "auction",
		DBName:   "auctioneer_test",
		SSLMode:  "disable",
	}
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase(cfg.DBName),
		tcpostgres.WithUsername(cfg.User),
		tcpostgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	if cfg.Host, err = ctr.Host(ctx); err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	cfg.Port = port.Int()
	return cfg
}

// newTestDB connects through the instrumented driver and applies the schema.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := postgres.Connect(ctx, startPostgres(t))
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("applying migration: %v", err)
	}
	return db
}

func TestOpen_RegisteredDriver(t *testing.T) {
	cfg := startPostgres(t)
	cfg.Migrate = true
	ctx := context.Background()

	repos, err := store.Open(ctx, cfg, clock.Real{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer repos.Closer.Close()

	if err := repos.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	// Migrations are idempotent, so a second open against the same database works.
	again, err := store.Open(ctx, cfg, clock.Real{})
	if err != nil {
		t.Fatalf("second store.Open: %v", err)
	}
	defer again.Closer.Close()

	if _, err := repos.Sessions.Latest(ctx); err != store.ErrNotFound {
		t.Errorf("Latest on empty database error = %v, want store.ErrNotFound", err)
	}
}
