package users

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

type userHooks struct {
	entity.BaseHooks[*User]

	rel      *relationship.Repository
	registry *entity.Registry
}

func (h *userHooks) Prepare(ctx context.Context, db bun.IDB, u *User, update bool) error {
	if u.Name == "" {
		return apperror.NewBadRequest("user name is required")
	}
	u.FullyQualifiedName = u.Name
	return nil
}

func (h *userHooks) SetFields(ctx context.Context, db bun.IDB, u *User, fields entity.Fields) error {
	if !fields.Has(FieldTeams) {
		return nil
	}
	edges, err := h.rel.WithTx(db).FindTo(ctx, u.ID, relationship.Has, relationship.TypeTeam)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		team, err := h.registry.Reference(ctx, edge.FromEntity, edge.FromID)
		if err != nil {
			return err
		}
		u.Teams = append(u.Teams, *team)
	}
	return nil
}

func (h *userHooks) ClearDerived(u *User) (restore func()) {
	teams := u.Teams
	u.Teams = nil
	return func() { u.Teams = teams }
}

func (h *userHooks) UpdateFields(ctx context.Context, db bun.IDB, original, updated *User, rec *entity.ChangeRecorder, isPatch bool) error {
	rec.RecordChange("email", original.Email, updated.Email)
	rec.RecordChange("isBot", original.IsBot, updated.IsBot)
	rec.RecordChange("deactivated", original.Deactivated, updated.Deactivated)
	return nil
}

type teamHooks struct {
	entity.BaseHooks[*Team]

	rel      *relationship.Repository
	registry *entity.Registry
}

func (h *teamHooks) Prepare(ctx context.Context, db bun.IDB, t *Team, update bool) error {
	if t.Name == "" {
		return apperror.NewBadRequest("team name is required")
	}
	t.FullyQualifiedName = t.Name

	// Member references must resolve to existing users.
	for i, member := range t.Users {
		ref, err := h.registry.Reference(ctx, relationship.TypeUser, member.ID)
		if err != nil {
			return apperror.NewBadRequest("team member '" + member.ID.String() + "' is not a known user")
		}
		t.Users[i] = *ref
	}
	return nil
}

func (h *teamHooks) SetFields(ctx context.Context, db bun.IDB, t *Team, fields entity.Fields) error {
	if !fields.Has(FieldUsers) {
		return nil
	}
	edges, err := h.rel.WithTx(db).FindFrom(ctx, t.ID, relationship.Has, relationship.TypeUser)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		member, err := h.registry.Reference(ctx, edge.ToEntity, edge.ToID)
		if err != nil {
			return err
		}
		t.Users = append(t.Users, *member)
	}
	return nil
}

func (h *teamHooks) StoreRelationships(ctx context.Context, db bun.IDB, t *Team) error {
	rel := h.rel.WithTx(db)
	for _, member := range t.Users {
		edge := &relationship.Edge{
			FromID:     t.ID,
			ToID:       member.ID,
			FromEntity: relationship.TypeTeam,
			ToEntity:   relationship.TypeUser,
			Relation:   relationship.Has,
		}
		if err := rel.Insert(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

func (h *teamHooks) ClearDerived(t *Team) (restore func()) {
	members := t.Users
	t.Users = nil
	return func() { t.Users = members }
}

func (h *teamHooks) UpdateFields(ctx context.Context, db bun.IDB, original, updated *Team, rec *entity.ChangeRecorder, isPatch bool) error {
	// Members live in the graph, so the original's must be loaded before
	// the lists can be diffed.
	if err := h.SetFields(ctx, db, original, entity.NewFields(FieldUsers)); err != nil {
		return err
	}

	sameUser := func(a, b entity.Reference) bool { return a.ID == b.ID }
	added, deleted := entity.RecordListChange(rec, "users", original.Users, updated.Users, sameUser, false)
	if len(added) == 0 && len(deleted) == 0 {
		return nil
	}

	rel := h.rel.WithTx(db)
	if err := rel.DeleteAllFrom(ctx, original.ID, relationship.Has); err != nil {
		return err
	}
	return h.StoreRelationships(ctx, db, updated)
}
