package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/datamesh-labs/catalogd/domain/databases"
	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/glossary"
	"github.com/datamesh-labs/catalogd/domain/lineage"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/services"
	"github.com/datamesh-labs/catalogd/domain/tables"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/domain/users"
)

// Catalog wires every store against one test database, the same way the fx
// graph does in the server.
type Catalog struct {
	DB       *TestDB
	Registry *entity.Registry
	Rel      *relationship.Repository
	Tags     *tag.Repository
	Ext      *entity.ExtensionRepository

	Services   *services.Store
	Databases  *databases.Store
	Tables     *tables.Store
	Users      *users.Store
	Teams      *users.TeamStore
	Glossaries *glossary.Store
	Terms      *glossary.TermStore
	Lineage    *lineage.Service
}

// NewCatalog builds a fully wired catalog on a fresh test database, skipping
// the test when no Postgres is reachable.
func NewCatalog(t *testing.T, suffix string) *Catalog {
	t.Helper()

	testDB := NewTestDB(t, suffix)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	registry := entity.NewRegistry()
	rel := relationship.NewRepository(testDB.DB, log)
	tags := tag.NewRepository(testDB.DB, log)
	ext := entity.NewExtensionRepository(testDB.DB, log)

	return &Catalog{
		DB:       testDB,
		Registry: registry,
		Rel:      rel,
		Tags:     tags,
		Ext:      ext,

		Services:   services.NewStore(testDB.DB, rel, tags, ext, registry, log),
		Databases:  databases.NewStore(testDB.DB, rel, tags, ext, registry, log),
		Tables:     tables.NewStore(testDB.DB, rel, tags, ext, registry, log),
		Users:      users.NewStore(testDB.DB, rel, tags, ext, registry, log),
		Teams:      users.NewTeamStore(testDB.DB, rel, tags, ext, registry, log),
		Glossaries: glossary.NewStore(testDB.DB, rel, tags, ext, registry, log),
		Terms:      glossary.NewTermStore(testDB.DB, rel, tags, ext, registry, log),
		Lineage:    lineage.NewService(rel, registry, log),
	}
}
