// Package migrate applies embedded SQL migrations using Goose.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/datamesh-labs/catalogd/internal/config"
	"github.com/datamesh-labs/catalogd/migrations"
	"github.com/datamesh-labs/catalogd/pkg/logger"
)

// Module provides migration dependencies and runs pending migrations on
// startup when CATALOG_RUN_MIGRATIONS is enabled.
var Module = fx.Module("migrate",
	fx.Provide(NewMigrator),
	fx.Invoke(runOnStartup),
)

// Migrator handles database migrations.
type Migrator struct {
	db  *bun.DB
	log *slog.Logger
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *bun.DB, log *slog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log.With(logger.Scope("migrate")),
	}
}

func runOnStartup(lc fx.Lifecycle, m *Migrator, cfg *config.Config) {
	if !cfg.Catalog.RunMigrations {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Up(ctx)
		},
	})
}

func (m *Migrator) setup() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.log.Info("running database migrations")

	if err := m.setup(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	m.log.Info("migrations completed")
	return nil
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	m.log.Info("rolling back last migration")

	if err := m.setup(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, m.db.DB, "."); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	if err := m.setup(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, m.db.DB)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
