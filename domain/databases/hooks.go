package databases

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/fqn"
)

type databaseHooks struct {
	entity.BaseHooks[*Database]

	rel      *relationship.Repository
	registry *entity.Registry
}

func (h *databaseHooks) Prepare(ctx context.Context, db bun.IDB, d *Database, update bool) error {
	if d.Name == "" {
		return apperror.NewBadRequest("database name is required")
	}

	service, err := h.registry.ResolveReference(ctx, relationship.TypeDatabaseService, d.Service)
	if err != nil {
		return err
	}
	d.Service = service
	d.FullyQualifiedName = fqn.Build(service.FullyQualifiedName, d.Name)
	return nil
}

func (h *databaseHooks) SetFields(ctx context.Context, db bun.IDB, d *Database, fields entity.Fields) error {
	if !fields.Has(FieldService) {
		return nil
	}
	edges, err := h.rel.WithTx(db).FindTo(ctx, d.ID, relationship.Contains, relationship.TypeDatabaseService)
	if err != nil {
		return err
	}
	if len(edges) > 0 {
		service, err := h.registry.Reference(ctx, edges[0].FromEntity, edges[0].FromID)
		if err != nil {
			return err
		}
		d.Service = service
	}
	return nil
}

func (h *databaseHooks) StoreRelationships(ctx context.Context, db bun.IDB, d *Database) error {
	edge := &relationship.Edge{
		FromID:     d.Service.ID,
		ToID:       d.ID,
		FromEntity: relationship.TypeDatabaseService,
		ToEntity:   relationship.TypeDatabase,
		Relation:   relationship.Contains,
	}
	return h.rel.WithTx(db).Insert(ctx, edge)
}

func (h *databaseHooks) ClearDerived(d *Database) (restore func()) {
	service := d.Service
	d.Service = nil
	return func() { d.Service = service }
}

func (h *databaseHooks) PatchFields() entity.Fields {
	return entity.NewFields(FieldService)
}

func (h *databaseHooks) RestorePatchAttributes(original, updated *Database) {
	updated.Service = original.Service
}
