package tables

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Store manages table documents plus their side blobs and join usage.
type Store struct {
	*entity.Store[*Table]

	rel      *relationship.Repository
	ext      *entity.ExtensionRepository
	registry *entity.Registry
	hooks    *tableHooks
	db       bun.IDB
}

// NewStore creates the table store and registers it for cross-type lookups.
func NewStore(
	db bun.IDB,
	rel *relationship.Repository,
	tags *tag.Repository,
	ext *entity.ExtensionRepository,
	registry *entity.Registry,
	log *slog.Logger,
) *Store {
	cfg := entity.StoreConfig{
		EntityType: relationship.TypeTable,
		Table:      "table_entity",
		NameColumn: "fullyqualifiedname",
		SoftDelete: true,
	}
	hooks := &tableHooks{rel: rel, tags: tags, ext: ext, registry: registry}
	s := &Store{
		Store: entity.NewStore(cfg, db, rel, tags, ext, registry, hooks,
			func() *Table { return &Table{} }, log),
		rel:      rel,
		ext:      ext,
		registry: registry,
		hooks:    hooks,
		db:       db,
	}
	registry.Register(s)
	return s
}

// PutSampleData stores a row sample for a table. Samples are side blobs:
// replacing one bumps no version and leaves no audit entry.
func (s *Store) PutSampleData(ctx context.Context, id uuid.UUID, sample *SampleData) error {
	if _, err := s.Get(ctx, id, nil, entity.IncludeNonDeleted); err != nil {
		return err
	}
	for _, row := range sample.Rows {
		if len(row) != len(sample.Columns) {
			return apperror.NewBadRequest("sample rows must match the sample column list")
		}
	}

	raw, err := json.Marshal(sample)
	if err != nil {
		return apperror.ErrInternal.WithInternal(err)
	}
	return s.ext.Put(ctx, id, sampleDataKey, raw)
}

// GetSampleData returns the stored row sample, or NotFound when none.
func (s *Store) GetSampleData(ctx context.Context, id uuid.UUID) (*SampleData, error) {
	if _, err := s.Get(ctx, id, nil, entity.IncludeNonDeleted); err != nil {
		return nil, err
	}

	raw, err := s.ext.Get(ctx, id, sampleDataKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, apperror.NewNotFound("sample data for table", id.String())
	}

	var sample SampleData
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}
	return &sample, nil
}

// RecordJoins merges observed join counts into the JOINED_WITH edges
// between this table and the named others. Counts are keyed by
// (fromColumn, toColumn, startDate); a re-reported bucket replaces the old
// count. Join usage is unversioned.
func (s *Store) RecordJoins(ctx context.Context, id uuid.UUID, req *JoinsRequest) error {
	table, err := s.Get(ctx, id, nil, entity.IncludeNonDeleted)
	if err != nil {
		return err
	}

	for _, join := range req.Joins {
		other, err := s.registry.ReferenceByName(ctx, relationship.TypeTable, join.JoinedWithFQN)
		if err != nil {
			return err
		}
		if other.ID == table.ID {
			return apperror.NewBadRequest("a table cannot join with itself")
		}

		merged, err := s.mergeJoinPayload(ctx, table.ID, other.ID, join.ColumnJoins)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(merged)
		if err != nil {
			return apperror.ErrInternal.WithInternal(err)
		}

		// Edges are stored in one canonical direction so a pair of tables
		// never carries two JOINED_WITH rows.
		fromID, toID := table.ID, other.ID
		if other.ID.String() < table.ID.String() {
			fromID, toID = other.ID, table.ID
		}
		edge := &relationship.Edge{
			FromID:     fromID,
			ToID:       toID,
			FromEntity: relationship.TypeTable,
			ToEntity:   relationship.TypeTable,
			Relation:   relationship.JoinedWith,
			JSON:       payload,
		}
		if err := s.rel.Insert(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

// GetJoins returns the join usage of a table against all others.
func (s *Store) GetJoins(ctx context.Context, id uuid.UUID) ([]TableJoin, error) {
	table, err := s.Get(ctx, id, nil, entity.IncludeNonDeleted)
	if err != nil {
		return nil, err
	}
	return s.hooks.loadJoins(ctx, s.db, table)
}

func (s *Store) mergeJoinPayload(ctx context.Context, a, b uuid.UUID, reported []ColumnJoin) ([]ColumnJoin, error) {
	fromID, toID := a, b
	if b.String() < a.String() {
		fromID, toID = b, a
	}

	existing := make(map[string]ColumnJoin)
	edges, err := s.rel.FindFrom(ctx, fromID, relationship.JoinedWith, relationship.TypeTable)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		if edge.ToID != toID || len(edge.JSON) == 0 {
			continue
		}
		var joins []ColumnJoin
		if err := json.Unmarshal(edge.JSON, &joins); err != nil {
			return nil, apperror.ErrInternal.WithInternal(err)
		}
		for _, j := range joins {
			existing[joinKey(j)] = j
		}
	}

	for _, j := range reported {
		existing[joinKey(j)] = j
	}

	merged := make([]ColumnJoin, 0, len(existing))
	for _, j := range existing {
		merged = append(merged, j)
	}
	return merged, nil
}

func joinKey(j ColumnJoin) string {
	return j.FromColumn + "|" + j.ToColumn + "|" + j.StartDate
}
