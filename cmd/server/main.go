// Package main provides the entry point for the catalogd metadata server.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/datamesh-labs/catalogd/domain/databases"
	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/glossary"
	"github.com/datamesh-labs/catalogd/domain/health"
	"github.com/datamesh-labs/catalogd/domain/lineage"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/services"
	"github.com/datamesh-labs/catalogd/domain/tables"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/domain/users"
	"github.com/datamesh-labs/catalogd/internal/config"
	"github.com/datamesh-labs/catalogd/internal/database"
	"github.com/datamesh-labs/catalogd/internal/migrate"
	"github.com/datamesh-labs/catalogd/internal/server"
	"github.com/datamesh-labs/catalogd/pkg/logger"
)

func main() {
	// Load .env files if present (for local development)
	// Order matters: .env.local overrides .env
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,

		// Catalog core (registry, graph, tag index)
		entity.Module,
		relationship.Module,
		tag.Module,

		// Entity domains
		health.Module,
		users.Module,
		services.Module,
		databases.Module,
		tables.Module,
		glossary.Module,
		lineage.Module,
	).Run()
}
