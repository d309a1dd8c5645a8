// Package testutil provides isolated Postgres databases for store tests.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/datamesh-labs/catalogd/internal/config"
	"github.com/datamesh-labs/catalogd/internal/migrate"
)

const templateDBName = "catalogd_test_template"

var (
	templateOnce sync.Once
	templateErr  error
)

// TestDB holds test database resources
type TestDB struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	DB     *bun.DB
	Name   string

	cleanup func()
}

// Close releases test database resources
func (t *TestDB) Close() {
	if t.cleanup != nil {
		t.cleanup()
	}
}

// NewTestDB creates an isolated test database, skipping the test when no
// Postgres is reachable. The database is dropped via t.Cleanup.
func NewTestDB(t *testing.T, suffix string) *TestDB {
	t.Helper()

	ctx := context.Background()
	testDB, err := SetupTestDB(ctx, suffix)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(testDB.Close)
	return testDB
}

// SetupTestDB creates an isolated test database. It uses a template database
// pattern for speed:
//   - First call: creates template DB and runs migrations (~1s)
//   - Subsequent calls: CREATE DATABASE ... TEMPLATE (~50ms)
//
// The test database is dropped when Close() is called.
func SetupTestDB(ctx context.Context, suffix string) (*TestDB, error) {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	baseCfg, err := config.NewConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Template database is built once per test run
	templateOnce.Do(func() {
		templateErr = ensureTemplateDB(ctx, baseCfg, log)
	})
	if templateErr != nil {
		return nil, fmt.Errorf("ensure template db: %w", templateErr)
	}

	testDBName := fmt.Sprintf("catalogd_test_%s_%d", suffix, time.Now().UnixNano())

	adminCfg := *baseCfg
	adminCfg.Database.Database = "postgres"

	adminPool, err := createPool(ctx, &adminCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	_, err = adminPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s", testDBName, templateDBName))
	adminPool.Close()
	if err != nil {
		return nil, fmt.Errorf("create test db from template: %w", err)
	}

	testCfg := *baseCfg
	testCfg.Database.Database = testDBName

	testPool, err := createPool(ctx, &testCfg)
	if err != nil {
		dropTestDB(ctx, baseCfg, testDBName)
		return nil, fmt.Errorf("connect to test db: %w", err)
	}

	sqldb := stdlib.OpenDBFromPool(testPool)
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	cleanup := func() {
		bunDB.Close()
		testPool.Close()
		dropTestDB(context.Background(), baseCfg, testDBName)
	}

	return &TestDB{
		Config:  &testCfg,
		Pool:    testPool,
		DB:      bunDB,
		Name:    testDBName,
		cleanup: cleanup,
	}, nil
}

// ensureTemplateDB creates the template database and applies migrations.
func ensureTemplateDB(ctx context.Context, baseCfg *config.Config, log *slog.Logger) error {
	adminCfg := *baseCfg
	adminCfg.Database.Database = "postgres"

	adminPool, err := createPool(ctx, &adminCfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer adminPool.Close()

	var exists bool
	err = adminPool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", templateDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check template exists: %w", err)
	}
	if exists {
		return nil
	}

	_, err = adminPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", templateDBName))
	if err != nil {
		return fmt.Errorf("create template db: %w", err)
	}

	templateCfg := *baseCfg
	templateCfg.Database.Database = templateDBName
	templatePool, err := createPool(ctx, &templateCfg)
	if err != nil {
		dropTestDB(ctx, baseCfg, templateDBName)
		return fmt.Errorf("connect to template db: %w", err)
	}
	defer templatePool.Close()

	sqldb := stdlib.OpenDBFromPool(templatePool)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	if err := migrate.NewMigrator(bunDB, log).Up(ctx); err != nil {
		dropTestDB(ctx, baseCfg, templateDBName)
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// createPool creates a pgx connection pool
func createPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = 5
	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// dropTestDB drops a test database, terminating stray connections first.
func dropTestDB(ctx context.Context, baseCfg *config.Config, dbName string) {
	adminCfg := *baseCfg
	adminCfg.Database.Database = "postgres"

	pool, err := createPool(ctx, &adminCfg)
	if err != nil {
		return
	}
	defer pool.Close()

	_, _ = pool.Exec(ctx, fmt.Sprintf(`
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = '%s' AND pid <> pg_backend_pid()
	`, dbName))

	_, _ = pool.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
}
