package services

import (
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
)

// Store manages database service documents.
type Store struct {
	*entity.Store[*DatabaseService]
}

// NewStore creates the service store and registers it for cross-type
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
		EntityType: relationship.TypeDatabaseService,
		Table:      "database_service_entity",
		NameColumn: "fullyqualifiedname",
		SoftDelete: true,
	}
	s := &Store{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, &serviceHooks{},
			func() *DatabaseService { return &DatabaseService{} }, log),
	}
	registry.Register(s)
	return s
}
