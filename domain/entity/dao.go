package entity

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/fqn"
	"github.com/datamesh-labs/catalogd/pkg/logger"
	"github.com/datamesh-labs/catalogd/pkg/pgutils"
)

// DAO reads and writes one entity type's document table. The tables all share
// the same shape (id, sort-key column, json, deleted); only the table and
// sort-key column names differ per type, so the DAO takes them as data.
type DAO struct {
	db         bun.IDB
	table      string
	nameColumn string
	log        *slog.Logger
}

// NewDAO creates a DAO for one document table. nameColumn is the sort and
// uniqueness key: fullyqualifiedname for hierarchical types, name otherwise.
func NewDAO(db bun.IDB, table, nameColumn string, log *slog.Logger) *DAO {
	return &DAO{
		db:         db,
		table:      table,
		nameColumn: nameColumn,
		log:        log.With(logger.Scope("entity.dao"), slog.String("table", table)),
	}
}

// WithTx returns a copy of the DAO bound to the given transaction.
func (d *DAO) WithTx(tx bun.IDB) *DAO {
	return &DAO{db: tx, table: d.table, nameColumn: d.nameColumn, log: d.log}
}

// Insert writes a new document row. Any row with the same sort key, live or
// soft-deleted, makes the unique index fire, surfaced as Conflict.
func (d *DAO) Insert(ctx context.Context, id uuid.UUID, name string, doc []byte) error {
	_, err := d.db.NewInsert().
		TableExpr("? AS t", bun.Ident(d.table)).
		ColumnExpr("id, ?, json, deleted", bun.Ident(d.nameColumn)).
		Value("id", "?", id).
		Value(d.nameColumn, "?", name).
		Value("json", "?", string(doc)).
		Value("deleted", "?", false).
		Exec(ctx)

	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return apperror.NewConflict("an entity with name '" + name + "' already exists")
		}
		d.log.Error("failed to insert document", logger.Error(err), slog.String("name", name))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// Update rewrites an existing document row in place.
func (d *DAO) Update(ctx context.Context, id uuid.UUID, name string, doc []byte, deleted bool) error {
	_, err := d.db.NewUpdate().
		TableExpr("? AS t", bun.Ident(d.table)).
		Set("? = ?", bun.Ident(d.nameColumn), name).
		Set("json = ?", string(doc)).
		Set("deleted = ?", deleted).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return apperror.NewConflict("an entity with name '" + name + "' already exists")
		}
		d.log.Error("failed to update document", logger.Error(err), slog.String("id", id.String()))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// FindByID returns a document body by id, or nil when absent. Include
// controls visibility of soft-deleted rows.
func (d *DAO) FindByID(ctx context.Context, id uuid.UUID, include Include) ([]byte, error) {
	var doc string

	query := d.db.NewSelect().
		TableExpr("? AS t", bun.Ident(d.table)).
		ColumnExpr("json").
		Where("id = ?", id)

	err := applyInclude(query, include).Scan(ctx, &doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		d.log.Error("failed to find document by id", logger.Error(err), slog.String("id", id.String()))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return []byte(doc), nil
}

// FindByName returns a document body by sort key, or nil when absent. The
// sort key is unique across deleted states, so at most one row matches.
func (d *DAO) FindByName(ctx context.Context, name string, include Include) ([]byte, error) {
	var doc string

	query := d.db.NewSelect().
		TableExpr("? AS t", bun.Ident(d.table)).
		ColumnExpr("json").
		Where("? = ?", bun.Ident(d.nameColumn), name).
		Limit(1)

	err := applyInclude(query, include).Scan(ctx, &doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		d.log.Error("failed to find document by name", logger.Error(err), slog.String("name", name))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	return []byte(doc), nil
}

// ListAfter returns up to limit document bodies with sort key strictly after
// the given key, ascending. Callers pass limit+1 to detect a next page.
func (d *DAO) ListAfter(ctx context.Context, prefix string, limit int, after string, include Include) ([][]byte, error) {
	query := d.db.NewSelect().
		TableExpr("? AS t", bun.Ident(d.table)).
		ColumnExpr("json").
		Where("? > ?", bun.Ident(d.nameColumn), after).
		OrderExpr("? ASC", bun.Ident(d.nameColumn)).
		Limit(limit)

	d.applyPrefix(query, prefix)
	return d.scanDocs(ctx, applyInclude(query, include))
}

// ListBefore returns up to limit document bodies with sort key strictly
// before the given key, in ascending order.
func (d *DAO) ListBefore(ctx context.Context, prefix string, limit int, before string, include Include) ([][]byte, error) {
	query := d.db.NewSelect().
		TableExpr("? AS t", bun.Ident(d.table)).
		ColumnExpr("json").
		Where("? < ?", bun.Ident(d.nameColumn), before).
		OrderExpr("? DESC", bun.Ident(d.nameColumn)).
		Limit(limit)

	d.applyPrefix(query, prefix)
	docs, err := d.scanDocs(ctx, applyInclude(query, include))
	if err != nil {
		return nil, err
	}

	// Fetched descending to anchor at the cursor; pages read ascending.
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
	return docs, nil
}

// Count returns the number of documents, optionally under an FQN prefix.
func (d *DAO) Count(ctx context.Context, prefix string, include Include) (int, error) {
	query := d.db.NewSelect().
		TableExpr("? AS t", bun.Ident(d.table))

	d.applyPrefix(query, prefix)
	count, err := applyInclude(query, include).Count(ctx)
	if err != nil {
		d.log.Error("failed to count documents", logger.Error(err))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return count, nil
}

// Delete hard-removes a document row. Returns whether a row existed.
func (d *DAO) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := d.db.NewDelete().
		TableExpr("? AS t", bun.Ident(d.table)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		d.log.Error("failed to delete document", logger.Error(err), slog.String("id", id.String()))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

func (d *DAO) applyPrefix(query *bun.SelectQuery, prefix string) {
	if prefix == "" {
		return
	}
	query.Where("? LIKE ?", bun.Ident(d.nameColumn), prefix+fqn.Separator+"%")
}

func applyInclude(query *bun.SelectQuery, include Include) *bun.SelectQuery {
	switch include {
	case IncludeDeleted:
		return query.Where("deleted")
	case IncludeAll:
		return query
	default:
		return query.Where("NOT deleted")
	}
}

func (d *DAO) scanDocs(ctx context.Context, query *bun.SelectQuery) ([][]byte, error) {
	var rows []string
	if err := query.Scan(ctx, &rows); err != nil {
		d.log.Error("failed to list documents", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	docs := make([][]byte, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, []byte(r))
	}
	return docs, nil
}
