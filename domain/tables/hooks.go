package tables

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/fqn"
)

type tableHooks struct {
	entity.BaseHooks[*Table]

	rel      *relationship.Repository
	tags     *tag.Repository
	ext      *entity.ExtensionRepository
	registry *entity.Registry
}

func (h *tableHooks) Prepare(ctx context.Context, db bun.IDB, t *Table, update bool) error {
	if t.Name == "" {
		return apperror.NewBadRequest("table name is required")
	}

	database, err := h.registry.ResolveReference(ctx, relationship.TypeDatabase, t.Database)
	if err != nil {
		return err
	}
	t.Database = database
	t.FullyQualifiedName = fqn.Build(database.FullyQualifiedName, t.Name)

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return apperror.NewBadRequest("column name is required")
		}
		if seen[col.Name] {
			return apperror.NewBadRequest("duplicate column name '" + col.Name + "'")
		}
		seen[col.Name] = true
	}
	return nil
}

func (h *tableHooks) SetFields(ctx context.Context, db bun.IDB, t *Table, fields entity.Fields) error {
	if fields.Has(FieldDatabase) {
		edges, err := h.rel.WithTx(db).FindTo(ctx, t.ID, relationship.Contains, relationship.TypeDatabase)
		if err != nil {
			return err
		}
		if len(edges) > 0 {
			database, err := h.registry.Reference(ctx, edges[0].FromEntity, edges[0].FromID)
			if err != nil {
				return err
			}
			t.Database = database
		}
	}

	if fields.Has(FieldSampleData) {
		raw, err := h.ext.WithTx(db).Get(ctx, t.ID, sampleDataKey)
		if err != nil {
			return err
		}
		if raw != nil {
			var sample SampleData
			if err := json.Unmarshal(raw, &sample); err != nil {
				return apperror.ErrInternal.WithInternal(err)
			}
			t.SampleData = &sample
		}
	}

	if fields.Has(FieldJoins) {
		joins, err := h.loadJoins(ctx, db, t)
		if err != nil {
			return err
		}
		t.Joins = joins
	}

	if fields.Has(entity.FieldTags) {
		// Column tags ride along whenever tags are requested.
		tagsRepo := h.tags.WithTx(db)
		for i := range t.Columns {
			labels, err := tagsRepo.List(ctx, columnFQN(t, t.Columns[i].Name))
			if err != nil {
				return err
			}
			t.Columns[i].Tags = labels
		}
	}

	return nil
}

func (h *tableHooks) loadJoins(ctx context.Context, db bun.IDB, t *Table) ([]TableJoin, error) {
	rel := h.rel.WithTx(db)

	outgoing, err := rel.FindFrom(ctx, t.ID, relationship.JoinedWith, relationship.TypeTable)
	if err != nil {
		return nil, err
	}
	incoming, err := rel.FindTo(ctx, t.ID, relationship.JoinedWith, relationship.TypeTable)
	if err != nil {
		return nil, err
	}

	var joins []TableJoin
	for _, edge := range append(outgoing, incoming...) {
		otherID, otherType := edge.ToID, edge.ToEntity
		if otherID == t.ID {
			otherID, otherType = edge.FromID, edge.FromEntity
		}
		other, err := h.registry.Reference(ctx, otherType, otherID)
		if err != nil {
			return nil, err
		}

		var columnJoins []ColumnJoin
		if len(edge.JSON) > 0 {
			if err := json.Unmarshal(edge.JSON, &columnJoins); err != nil {
				return nil, apperror.ErrInternal.WithInternal(err)
			}
		}
		joins = append(joins, TableJoin{JoinedWith: *other, ColumnJoins: columnJoins})
	}
	return joins, nil
}

func (h *tableHooks) StoreRelationships(ctx context.Context, db bun.IDB, t *Table) error {
	edge := &relationship.Edge{
		FromID:     t.Database.ID,
		ToID:       t.ID,
		FromEntity: relationship.TypeDatabase,
		ToEntity:   relationship.TypeTable,
		Relation:   relationship.Contains,
	}
	if err := h.rel.WithTx(db).Insert(ctx, edge); err != nil {
		return err
	}
	return h.applyColumnTags(ctx, db, t)
}

func (h *tableHooks) applyColumnTags(ctx context.Context, db bun.IDB, t *Table) error {
	tagsRepo := h.tags.WithTx(db)
	for _, col := range t.Columns {
		if len(col.Tags) == 0 {
			continue
		}
		if err := tagsRepo.ApplyAll(ctx, columnFQN(t, col.Name), col.Tags); err != nil {
			return err
		}
	}
	return nil
}

func (h *tableHooks) ClearDerived(t *Table) (restore func()) {
	database, sample, joins := t.Database, t.SampleData, t.Joins
	t.Database, t.SampleData, t.Joins = nil, nil, nil
	return func() {
		t.Database, t.SampleData, t.Joins = database, sample, joins
	}
}

func (h *tableHooks) PatchFields() entity.Fields {
	return entity.NewFields(FieldDatabase)
}

func (h *tableHooks) RestorePatchAttributes(original, updated *Table) {
	updated.Database = original.Database
	updated.TableType = original.TableType
}

func (h *tableHooks) UpdateFields(ctx context.Context, db bun.IDB, original, updated *Table, rec *entity.ChangeRecorder, isPatch bool) error {
	rec.RecordChange("tableType", original.TableType, updated.TableType)

	sameColumn := func(a, b Column) bool { return a.Name == b.Name }
	_, deleted := entity.RecordListChange(rec, "columns", original.Columns, updated.Columns, sameColumn, true)

	// Surviving columns are diffed field by field.
	oldByName := make(map[string]Column, len(original.Columns))
	for _, col := range original.Columns {
		oldByName[col.Name] = col
	}
	tagsChanged := false
	for _, col := range updated.Columns {
		old, ok := oldByName[col.Name]
		if !ok {
			if len(col.Tags) > 0 {
				tagsChanged = true
			}
			continue
		}
		prefix := "columns." + col.Name + "."
		rec.RecordChange(prefix+"description", old.Description, col.Description)
		rec.RecordChange(prefix+"dataType", old.DataType, col.DataType)

		sameTag := func(a, b tag.Label) bool { return a.TagFQN == b.TagFQN }
		added, removed := entity.RecordListChange(rec, prefix+"tags", old.Tags, col.Tags, sameTag, false)
		if len(added) > 0 || len(removed) > 0 {
			tagsChanged = true
		}
	}

	// Removed columns leave stale tag rows behind; rewrite the column tag
	// index whenever the column set or any column's tags moved.
	if tagsChanged || len(deleted) > 0 {
		tagsRepo := h.tags.WithTx(db)
		for _, col := range original.Columns {
			if err := tagsRepo.DeleteByTarget(ctx, columnFQN(original, col.Name)); err != nil {
				return err
			}
		}
		if err := h.applyColumnTags(ctx, db, updated); err != nil {
			return err
		}
	}
	return nil
}

func columnFQN(t *Table, column string) string {
	return fqn.Build(t.FullyQualifiedName, column)
}
