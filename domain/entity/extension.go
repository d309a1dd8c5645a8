package entity

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/logger"
)

// ExtensionRecord is one row of the shared entity_extension table: a keyed
// JSON side blob attached to an entity. Version snapshots, sample data and
// profiles all live here.
type ExtensionRecord struct {
	bun.BaseModel `bun:"table:entity_extension,alias:ee"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Extension string    `bun:"extension,pk" json:"extension"`
	JSON      []byte    `bun:"json,type:jsonb" json:"json"`
}

// VersionKey builds the extension key a version snapshot is stored under.
func VersionKey(entityType string, version float64) string {
	return fmt.Sprintf("%s.version.%.1f", entityType, version)
}

// VersionPrefix is the extension key prefix shared by all of an entity
// type's version snapshots.
func VersionPrefix(entityType string) string {
	return entityType + ".version."
}

// ExtensionRepository handles database operations on entity extensions.
type ExtensionRepository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewExtensionRepository creates a new extension repository
func NewExtensionRepository(db bun.IDB, log *slog.Logger) *ExtensionRepository {
	return &ExtensionRepository{
		db:  db,
		log: log.With(logger.Scope("entity.extension")),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ExtensionRepository) WithTx(tx bun.IDB) *ExtensionRepository {
	return &ExtensionRepository{db: tx, log: r.log}
}

// Put writes a side blob, replacing any previous value under the same key.
// Version snapshot keys are never rewritten in practice: the store only
// snapshots a version it is moving away from.
func (r *ExtensionRepository) Put(ctx context.Context, id uuid.UUID, key string, doc []byte) error {
	record := &ExtensionRecord{ID: id, Extension: key, JSON: doc}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (id, extension) DO UPDATE").
		Set("json = EXCLUDED.json").
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to put extension", logger.Error(err),
			slog.String("id", id.String()),
			slog.String("extension", key))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// Get returns one side blob, or nil when absent.
func (r *ExtensionRepository) Get(ctx context.Context, id uuid.UUID, key string) ([]byte, error) {
	var record ExtensionRecord

	err := r.db.NewSelect().
		Model(&record).
		Where("id = ?", id).
		Where("extension = ?", key).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get extension", logger.Error(err),
			slog.String("id", id.String()),
			slog.String("extension", key))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return record.JSON, nil
}

// ListPrefix returns every side blob whose key starts with the prefix,
// ordered by key descending. Version snapshot keys sort lexically here;
// numeric ordering is the caller's concern.
func (r *ExtensionRepository) ListPrefix(ctx context.Context, id uuid.UUID, prefix string) ([]ExtensionRecord, error) {
	var records []ExtensionRecord

	err := r.db.NewSelect().
		Model(&records).
		Where("id = ?", id).
		Where("extension LIKE ?", prefix+"%").
		Order("extension DESC").
		Scan(ctx)

	if err != nil {
		r.log.Error("failed to list extensions", logger.Error(err),
			slog.String("id", id.String()),
			slog.String("prefix", prefix))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return records, nil
}

// DeleteAll removes every side blob attached to an entity. Used on hard
// delete only; soft delete keeps history.
func (r *ExtensionRepository) DeleteAll(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*ExtensionRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete extensions", logger.Error(err),
			slog.String("id", id.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}
