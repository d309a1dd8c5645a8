package databases

import (
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
)

// Store manages database documents.
type Store struct {
	*entity.Store[*Database]
}

// NewStore creates the database store and registers it for cross-type
// lookups.
func NewStore(
	db bun.IDB,
	rel *relationship.Repository,
	tags *tag.Repository,
	ext *entity.ExtensionRepository,
	registry *entity.Registry,
	log *slog.Logger,
) *Store {
	cfg := entity.StoreConfig{
		EntityType: relationship.TypeDatabase,
		Table:      "database_entity",
		NameColumn: "fullyqualifiedname",
		SoftDelete: true,
	}
	hooks := &databaseHooks{rel: rel, registry: registry}
	s := &Store{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, hooks,
			func() *Database { return &Database{} }, log),
	}
	registry.Register(s)
	return s
}
