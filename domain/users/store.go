package users

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Store manages user documents.
type Store struct {
	*entity.Store[*User]
}

// NewStore creates the user store and registers it for cross-type lookups.
func NewStore(
	db bun.IDB,
	rel *relationship.Repository,
	tags *tag.Repository,
	ext *entity.ExtensionRepository,
	registry *entity.Registry,
	log *slog.Logger,
) *Store {
	cfg := entity.StoreConfig{
		EntityType: relationship.TypeUser,
		Table:      "user_entity",
		NameColumn: "name",
		SoftDelete: true,
	}
	hooks := &userHooks{rel: rel, registry: registry}
	s := &Store{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, hooks,
			func() *User { return &User{} }, log),
	}
	registry.Register(s)
	return s
}

// ValidateFollower rejects follows from users that cannot follow: unknown,
// deleted or deactivated accounts.
func (s *Store) ValidateFollower(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id, nil, entity.IncludeAll)
	if err != nil {
		return err
	}
	if user.Deleted {
		return apperror.NewBadRequest("user '" + user.Name + "' is deleted and cannot follow entities")
	}
	if user.Deactivated {
		return apperror.NewBadRequest("user '" + user.Name + "' is deactivated and cannot follow entities")
	}
	return nil
}

// TeamStore manages team documents.
type TeamStore struct {
	*entity.Store[*Team]
}

// NewTeamStore creates the team store and registers it for cross-type
// lookups.
func NewTeamStore(
	db bun.IDB,
	rel *relationship.Repository,
	tags *tag.Repository,
	ext *entity.ExtensionRepository,
	registry *entity.Registry,
	log *slog.Logger,
) *TeamStore {
	cfg := entity.StoreConfig{
		EntityType: relationship.TypeTeam,
		Table:      "team_entity",
		NameColumn: "name",
		SoftDelete: true,
	}
	hooks := &teamHooks{rel: rel, registry: registry}
	s := &TeamStore{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, hooks,
			func() *Team { return &Team{} }, log),
	}
	registry.Register(s)
	return s
}
