package relationship

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/logger"
)

// Repository handles database operations on the edge table. It is a pure
// index: singular-owner and cascade invariants are enforced by the entity
// stores, which are its only callers.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("relationship.repo")),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{db: tx, log: r.log}
}

// Insert writes an edge, reviving it if a soft-deleted row already exists
// for the same (from, to, kind) triple.
func (r *Repository) Insert(ctx context.Context, edge *Edge) error {
	if err := Validate(edge.Relation, edge.FromEntity, edge.ToEntity); err != nil {
		return err
	}

	_, err := r.db.NewInsert().
		Model(edge).
		On("CONFLICT (from_id, to_id, relation) DO UPDATE").
		Set("json = EXCLUDED.json").
		Set("deleted = false").
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to insert edge", logger.Error(err),
			slog.String("from", edge.FromID.String()),
			slog.String("to", edge.ToID.String()),
			slog.String("relation", edge.Relation.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// Exists reports whether a live edge for the exact triple is present.
func (r *Repository) Exists(ctx context.Context, fromID, toID uuid.UUID, kind Kind) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*Edge)(nil)).
		Where("from_id = ?", fromID).
		Where("to_id = ?", toID).
		Where("relation = ?", kind).
		Where("NOT deleted").
		Exists(ctx)

	if err != nil {
		r.log.Error("failed to check edge existence", logger.Error(err),
			slog.String("from", fromID.String()),
			slog.String("to", toID.String()))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	return exists, nil
}

// FindFrom returns live edges starting at the given entity. An empty toType
// matches every target type.
func (r *Repository) FindFrom(ctx context.Context, fromID uuid.UUID, kind Kind, toType string) ([]Edge, error) {
	var edges []Edge

	query := r.db.NewSelect().
		Model(&edges).
		Where("from_id = ?", fromID).
		Where("relation = ?", kind).
		Where("NOT deleted").
		Order("to_id ASC")

	if toType != "" {
		query = query.Where("to_entity = ?", toType)
	}

	if err := query.Scan(ctx); err != nil {
		r.log.Error("failed to find edges from entity", logger.Error(err),
			slog.String("from", fromID.String()))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return edges, nil
}

// FindTo returns live edges pointing at the given entity. An empty fromType
// matches every source type.
func (r *Repository) FindTo(ctx context.Context, toID uuid.UUID, kind Kind, fromType string) ([]Edge, error) {
	var edges []Edge

	query := r.db.NewSelect().
		Model(&edges).
		Where("to_id = ?", toID).
		Where("relation = ?", kind).
		Where("NOT deleted").
		Order("from_id ASC")

	if fromType != "" {
		query = query.Where("from_entity = ?", fromType)
	}

	if err := query.Scan(ctx); err != nil {
		r.log.Error("failed to find edges to entity", logger.Error(err),
			slog.String("to", toID.String()))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return edges, nil
}

// Delete hard-removes a single edge. Returns whether a row was removed.
func (r *Repository) Delete(ctx context.Context, fromID, toID uuid.UUID, kind Kind) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*Edge)(nil)).
		Where("from_id = ?", fromID).
		Where("to_id = ?", toID).
		Where("relation = ?", kind).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete edge", logger.Error(err),
			slog.String("from", fromID.String()),
			slog.String("to", toID.String()))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// DeleteAllFrom hard-removes every edge of one kind starting at an entity.
func (r *Repository) DeleteAllFrom(ctx context.Context, fromID uuid.UUID, kind Kind) error {
	_, err := r.db.NewDelete().
		Model((*Edge)(nil)).
		Where("from_id = ?", fromID).
		Where("relation = ?", kind).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete edges from entity", logger.Error(err),
			slog.String("from", fromID.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// SoftDeleteAll marks every edge touching the entity as deleted, keeping the
// rows so an undelete can restore them.
func (r *Repository) SoftDeleteAll(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("deleted = true").
		Where("from_id = ? OR to_id = ?", id, id).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to soft delete edges", logger.Error(err),
			slog.String("id", id.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// RecoverSoftDeleteAll restores every soft-deleted edge touching the entity.
func (r *Repository) RecoverSoftDeleteAll(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*Edge)(nil)).
		Set("deleted = false").
		Where("from_id = ? OR to_id = ?", id, id).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to recover edges", logger.Error(err),
			slog.String("id", id.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// DeleteAll hard-removes every edge touching the entity. Irreversible.
func (r *Repository) DeleteAll(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Edge)(nil)).
		Where("from_id = ? OR to_id = ?", id, id).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete all edges", logger.Error(err),
			slog.String("id", id.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}
