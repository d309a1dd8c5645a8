package glossary

import (
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
)

// Store manages glossary documents.
type Store struct {
	*entity.Store[*Glossary]
}

// NewStore creates the glossary store and registers it for cross-type
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
		EntityType: relationship.TypeGlossary,
		Table:      "glossary_entity",
		NameColumn: "name",
		SoftDelete: true,
	}
	hooks := &glossaryHooks{rel: rel, registry: registry}
	s := &Store{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, hooks,
			func() *Glossary { return &Glossary{} }, log),
	}
	registry.Register(s)
	return s
}

// TermStore manages glossary term documents.
type TermStore struct {
	*entity.Store[*GlossaryTerm]
}

// NewTermStore creates the term store and registers it for cross-type
// lookups.
func NewTermStore(
	db bun.IDB,
	rel *relationship.Repository,
	tags *tag.Repository,
	ext *entity.ExtensionRepository,
	registry *entity.Registry,
	log *slog.Logger,
) *TermStore {
	cfg := entity.StoreConfig{
		EntityType: relationship.TypeGlossaryTerm,
		Table:      "glossary_term_entity",
		NameColumn: "fullyqualifiedname",
		SoftDelete: true,
	}
	hooks := &termHooks{rel: rel, registry: registry}
	s := &TermStore{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, hooks,
			func() *GlossaryTerm { return &GlossaryTerm{} }, log),
	}
	registry.Register(s)
	return s
}
