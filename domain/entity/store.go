package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/internal/database"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/logger"
	"github.com/datamesh-labs/catalogd/pkg/metrics"
)

// StoreConfig describes one entity type to the generic store.
type StoreConfig struct {
	// EntityType is the type name used in references and edge rows.
	EntityType string
	// Table is the document table, NameColumn its sort/uniqueness column.
	Table      string
	NameColumn string
	// SoftDelete makes delete mark documents instead of removing them.
	SoftDelete bool
}

// Store is the generic engine behind every concrete entity type: document
// reads and writes, graph and tag maintenance, change tracking, version
// snapshots and cursor pagination. Each public method runs in exactly one
// transaction; recursive deletes across entities are independent
// transactions by design.
type Store[T Object] struct {
	cfg      StoreConfig
	db       bun.IDB
	dao      *DAO
	rel      *relationship.Repository
	tags     *tag.Repository
	ext      *ExtensionRepository
	registry *Registry
	hooks    Hooks[T]
	newFn    func() T
	log      *slog.Logger
}

// NewStore wires a store for one entity type. newFn allocates an empty
// document for JSON decoding.
func NewStore[T Object](
	cfg StoreConfig,
	db bun.IDB,
	rel *relationship.Repository,
	tags *tag.Repository,
	ext *ExtensionRepository,
	registry *Registry,
	hooks Hooks[T],
	newFn func() T,
	log *slog.Logger,
) *Store[T] {
	return &Store[T]{
		cfg:      cfg,
		db:       db,
		dao:      NewDAO(db, cfg.Table, cfg.NameColumn, log),
		rel:      rel,
		tags:     tags,
		ext:      ext,
		registry: registry,
		hooks:    hooks,
		newFn:    newFn,
		log:      log.With(logger.Scope("entity.store"), slog.String("type", cfg.EntityType)),
	}
}

// EntityType returns the type name this store manages.
func (s *Store[T]) EntityType() string {
	return s.cfg.EntityType
}

// New allocates an empty document of this store's type.
func (s *Store[T]) New() T {
	return s.newFn()
}

// Get returns a live entity by id with the requested derived fields.
func (s *Store[T]) Get(ctx context.Context, id uuid.UUID, fields Fields, include Include) (T, error) {
	var zero T

	doc, err := s.dao.FindByID(ctx, id, include)
	if err != nil {
		return zero, err
	}
	if doc == nil {
		return zero, apperror.NewNotFound(s.cfg.EntityType, id.String())
	}

	e, err := s.decode(doc)
	if err != nil {
		return zero, err
	}
	if err := s.setFields(ctx, s.db, e, fields); err != nil {
		return zero, err
	}
	metrics.EntityReads.WithLabelValues(s.cfg.EntityType, "get").Inc()
	return e, nil
}

// GetByName returns a live entity by FQN (or name) with the requested
// derived fields.
func (s *Store[T]) GetByName(ctx context.Context, name string, fields Fields, include Include) (T, error) {
	var zero T

	doc, err := s.dao.FindByName(ctx, name, include)
	if err != nil {
		return zero, err
	}
	if doc == nil {
		return zero, apperror.NewNotFound(s.cfg.EntityType, name)
	}

	e, err := s.decode(doc)
	if err != nil {
		return zero, err
	}
	if err := s.setFields(ctx, s.db, e, fields); err != nil {
		return zero, err
	}
	metrics.EntityReads.WithLabelValues(s.cfg.EntityType, "getByName").Inc()
	return e, nil
}

// Create stores a new entity: prepare, document write and edge/tag writes in
// one transaction. Fails with Conflict when any document holds the FQN; a
// soft-deleted holder must be hard-deleted before its name is reused.
func (s *Store[T]) Create(ctx context.Context, e T, updatedBy string) (T, error) {
	var zero T

	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return zero, apperror.ErrDatabase.WithInternal(err)
	}
	defer tx.Rollback()

	if err := s.hooks.Prepare(ctx, tx, e, false); err != nil {
		return zero, err
	}

	name := e.EntityCommon().SortKey()
	existingDoc, err := s.dao.WithTx(tx).FindByName(ctx, name, IncludeAll)
	if err != nil {
		return zero, err
	}
	if existingDoc != nil {
		existing, err := s.decode(existingDoc)
		if err != nil {
			return zero, err
		}
		if existing.EntityCommon().Deleted {
			return zero, apperror.NewConflict("name '" + name +
				"' is held by a soft-deleted entity; hard delete it to reuse the name")
		}
		return zero, apperror.NewConflict("an entity with name '" + name + "' already exists")
	}

	if err := s.create(ctx, tx, e, updatedBy); err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, apperror.ErrDatabase.WithInternal(err)
	}
	metrics.EntityWrites.WithLabelValues(s.cfg.EntityType, "create").Inc()
	return e, nil
}

// CreateOrUpdate looks the entity up by FQN including soft-deleted rows:
// absent behaves as create, a soft-deleted match is restored before diffing,
// a live match is diffed and rewritten. expectedVersion, when non-nil, must
// match the stored version or the call fails with Conflict.
func (s *Store[T]) CreateOrUpdate(ctx context.Context, e T, updatedBy string, expectedVersion *float64) (T, bool, error) {
	var zero T

	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return zero, false, apperror.ErrDatabase.WithInternal(err)
	}
	defer tx.Rollback()

	if err := s.hooks.Prepare(ctx, tx, e, true); err != nil {
		return zero, false, err
	}

	originalDoc, err := s.dao.WithTx(tx).FindByName(ctx, e.EntityCommon().SortKey(), IncludeAll)
	if err != nil {
		return zero, false, err
	}

	if originalDoc == nil {
		if err := s.create(ctx, tx, e, updatedBy); err != nil {
			return zero, false, err
		}
		if err := tx.Commit(); err != nil {
			return zero, false, apperror.ErrDatabase.WithInternal(err)
		}
		metrics.EntityWrites.WithLabelValues(s.cfg.EntityType, "create").Inc()
		return e, true, nil
	}

	original, err := s.decode(originalDoc)
	if err != nil {
		return zero, false, err
	}
	if err := s.checkVersion(original, expectedVersion); err != nil {
		return zero, false, err
	}
	wasDeleted := original.EntityCommon().Deleted

	if err := s.update(ctx, tx, original, originalDoc, e, updatedBy, false); err != nil {
		return zero, false, err
	}

	if err := tx.Commit(); err != nil {
		return zero, false, apperror.ErrDatabase.WithInternal(err)
	}
	metrics.EntityWrites.WithLabelValues(s.cfg.EntityType, "update").Inc()

	// A restore extends to the contained subtree, mirroring recursive delete.
	// Children run after the commit so their transactions never overlap this
	// one on shared edge rows.
	if wasDeleted {
		if err := s.restoreChildren(ctx, original.EntityCommon().ID, updatedBy); err != nil {
			return zero, false, err
		}
	}
	return e, false, nil
}

// Patch applies an RFC 6902 patch to the stored document. Protected fields
// (id, name, FQN, immutable parents) are restored from the original rather
// than rejected when a patch touches them.
func (s *Store[T]) Patch(ctx context.Context, id uuid.UUID, updatedBy string, patchDoc []byte, expectedVersion *float64) (T, error) {
	var zero T

	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return zero, apperror.ErrDatabase.WithInternal(err)
	}
	defer tx.Rollback()

	storedDoc, err := s.dao.WithTx(tx).FindByID(ctx, id, IncludeAll)
	if err != nil {
		return zero, err
	}
	if storedDoc == nil {
		return zero, apperror.NewNotFound(s.cfg.EntityType, id.String())
	}

	original, err := s.decode(storedDoc)
	if err != nil {
		return zero, err
	}
	if err := s.checkVersion(original, expectedVersion); err != nil {
		return zero, err
	}

	// Patches may address derived fields like /owner and /tags, so the
	// document is patched with them populated, plus whatever the type
	// declares immutable-but-visible (parent references).
	patchFields := NewFields(FieldOwner, FieldTags)
	for name := range s.hooks.PatchFields() {
		patchFields[name] = true
	}
	if err := s.setFields(ctx, tx, original, patchFields); err != nil {
		return zero, err
	}
	originalJSON, err := json.Marshal(original)
	if err != nil {
		return zero, apperror.ErrInternal.WithInternal(err)
	}

	patch, err := jsonpatch.DecodePatch(patchDoc)
	if err != nil {
		return zero, apperror.NewBadRequest("invalid JSON patch: " + err.Error())
	}
	patchedJSON, err := patch.Apply(originalJSON)
	if err != nil {
		return zero, apperror.NewBadRequest("failed to apply JSON patch: " + err.Error())
	}

	updated, err := s.decode(patchedJSON)
	if err != nil {
		return zero, apperror.NewBadRequest("patched document is not a valid " + s.cfg.EntityType)
	}

	if err := s.hooks.Prepare(ctx, tx, updated, true); err != nil {
		return zero, err
	}
	s.restorePatchAttributes(original, updated)

	wasDeleted := original.EntityCommon().Deleted
	if err := s.update(ctx, tx, original, storedDoc, updated, updatedBy, true); err != nil {
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, apperror.ErrDatabase.WithInternal(err)
	}
	metrics.EntityWrites.WithLabelValues(s.cfg.EntityType, "patch").Inc()

	if wasDeleted {
		if err := s.restoreChildren(ctx, original.EntityCommon().ID, updatedBy); err != nil {
			return zero, err
		}
	}
	return updated, nil
}

// Delete removes an entity according to the type's delete policy, or hard
// when the caller insists. A container with live CONTAINS children fails
// with IllegalState unless recursive is set, in which case the subtree is
// deleted first, each child in its own transaction.
func (s *Store[T]) Delete(ctx context.Context, id uuid.UUID, recursive, hardDelete bool, updatedBy string) error {
	return s.deleteInternal(ctx, id, recursive, hardDelete || !s.cfg.SoftDelete, updatedBy)
}

// CascadeDelete implements RegisteredStore for cross-type recursion. The
// hardness of the root delete carries through the whole subtree.
func (s *Store[T]) CascadeDelete(ctx context.Context, id uuid.UUID, hardDelete bool, updatedBy string) error {
	return s.deleteInternal(ctx, id, true, hardDelete, updatedBy)
}

func (s *Store[T]) deleteInternal(ctx context.Context, id uuid.UUID, recursive, hardDelete bool, updatedBy string) error {
	storedDoc, err := s.dao.FindByID(ctx, id, IncludeAll)
	if err != nil {
		return err
	}
	if storedDoc == nil {
		return apperror.NewNotFound(s.cfg.EntityType, id.String())
	}
	original, err := s.decode(storedDoc)
	if err != nil {
		return err
	}

	children, err := s.rel.FindFrom(ctx, id, relationship.Contains, "")
	if err != nil {
		return err
	}
	if len(children) > 0 && !recursive {
		return apperror.ErrIllegalState.WithMessage(
			s.cfg.EntityType + " is not empty; use recursive delete to remove contained entities")
	}

	// Children first, each type dispatched through the registry. Every
	// entity is its own transaction, so a crash mid-recursion leaves a
	// partially deleted subtree rather than rolling back.
	for _, edge := range children {
		childStore, err := s.registry.Get(edge.ToEntity)
		if err != nil {
			return err
		}
		if err := childStore.CascadeDelete(ctx, edge.ToID, hardDelete, updatedBy); err != nil {
			return err
		}
	}

	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	defer tx.Rollback()

	if hardDelete {
		err = s.hardDelete(ctx, tx, original)
	} else {
		err = s.softDelete(ctx, tx, original, storedDoc, updatedBy)
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	mode := "soft"
	if hardDelete {
		mode = "hard"
	}
	metrics.EntityDeletes.WithLabelValues(s.cfg.EntityType, mode).Inc()
	return nil
}

func (s *Store[T]) hardDelete(ctx context.Context, tx bun.IDB, original T) error {
	c := original.EntityCommon()

	if _, err := s.dao.WithTx(tx).Delete(ctx, c.ID); err != nil {
		return err
	}
	if err := s.rel.WithTx(tx).DeleteAll(ctx, c.ID); err != nil {
		return err
	}
	if err := s.ext.WithTx(tx).DeleteAll(ctx, c.ID); err != nil {
		return err
	}
	return s.tags.WithTx(tx).DeleteByTargetPrefix(ctx, c.SortKey())
}

func (s *Store[T]) softDelete(ctx context.Context, tx bun.IDB, original T, storedDoc []byte, updatedBy string) error {
	c := original.EntityCommon()
	if c.Deleted {
		return nil
	}

	rec := NewChangeRecorder(c.Version)
	rec.RecordChange("deleted", false, true)

	oldVersion := c.Version
	if err := s.ext.WithTx(tx).Put(ctx, c.ID, VersionKey(s.cfg.EntityType, oldVersion), storedDoc); err != nil {
		return err
	}

	c.Deleted = true
	c.Version = NextVersion(oldVersion, false)
	c.ChangeDescription = rec.Change()
	c.UpdatedBy = updatedBy
	c.UpdatedAt = time.Now().UTC()

	doc, err := s.marshalDoc(original)
	if err != nil {
		return err
	}
	if err := s.dao.WithTx(tx).Update(ctx, c.ID, c.SortKey(), doc, true); err != nil {
		return err
	}
	return s.rel.WithTx(tx).SoftDeleteAll(ctx, c.ID)
}

// CascadeRestore implements RegisteredStore: undeletes the entity, then its
// contained subtree, each entity in its own transaction like delete.
func (s *Store[T]) CascadeRestore(ctx context.Context, id uuid.UUID, updatedBy string) error {
	storedDoc, err := s.dao.FindByID(ctx, id, IncludeAll)
	if err != nil {
		return err
	}
	if storedDoc == nil {
		return apperror.NewNotFound(s.cfg.EntityType, id.String())
	}
	original, err := s.decode(storedDoc)
	if err != nil {
		return err
	}

	if original.EntityCommon().Deleted {
		tx, err := database.BeginSafeTx(ctx, s.db)
		if err != nil {
			return apperror.ErrDatabase.WithInternal(err)
		}
		defer tx.Rollback()

		if err := s.restore(ctx, tx, original, storedDoc, updatedBy); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return apperror.ErrDatabase.WithInternal(err)
		}
		metrics.EntityWrites.WithLabelValues(s.cfg.EntityType, "restore").Inc()
	}

	return s.restoreChildren(ctx, id, updatedBy)
}

// restore is the mirror of softDelete: snapshot, undelete the document with a
// recorded change and version bump, revive its edges. Runs inside the
// caller's transaction.
func (s *Store[T]) restore(ctx context.Context, tx bun.IDB, original T, storedDoc []byte, updatedBy string) error {
	c := original.EntityCommon()

	rec := NewChangeRecorder(c.Version)
	rec.RecordChange("deleted", true, false)

	oldVersion := c.Version
	if err := s.ext.WithTx(tx).Put(ctx, c.ID, VersionKey(s.cfg.EntityType, oldVersion), storedDoc); err != nil {
		return err
	}

	c.Deleted = false
	c.Version = NextVersion(oldVersion, false)
	c.ChangeDescription = rec.Change()
	c.UpdatedBy = updatedBy
	c.UpdatedAt = time.Now().UTC()

	doc, err := s.marshalDoc(original)
	if err != nil {
		return err
	}
	if err := s.dao.WithTx(tx).Update(ctx, c.ID, c.SortKey(), doc, false); err != nil {
		return err
	}
	return s.rel.WithTx(tx).RecoverSoftDeleteAll(ctx, c.ID)
}

// restoreChildren revives the contained subtree once the entity itself is
// restored and committed; its CONTAINS edges are live again by then.
func (s *Store[T]) restoreChildren(ctx context.Context, id uuid.UUID, updatedBy string) error {
	children, err := s.rel.FindFrom(ctx, id, relationship.Contains, "")
	if err != nil {
		return err
	}
	for _, edge := range children {
		childStore, err := s.registry.Get(edge.ToEntity)
		if err != nil {
			return err
		}
		if err := childStore.CascadeRestore(ctx, edge.ToID, updatedBy); err != nil {
			return err
		}
	}
	return nil
}

// AddFollower records a FOLLOWS edge from a user to this entity. Idempotent
// and unversioned: the first call reports created, repeats do not duplicate
// the edge. Deactivated users are rejected by the user store's validator.
func (s *Store[T]) AddFollower(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tx, err := database.BeginSafeTx(ctx, s.db)
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	defer tx.Rollback()

	doc, err := s.dao.WithTx(tx).FindByID(ctx, id, IncludeNonDeleted)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, apperror.NewNotFound(s.cfg.EntityType, id.String())
	}

	userStore, err := s.registry.Get(relationship.TypeUser)
	if err != nil {
		return false, err
	}
	if validator, ok := userStore.(FollowerValidator); ok {
		if err := validator.ValidateFollower(ctx, userID); err != nil {
			return false, err
		}
	}

	rel := s.rel.WithTx(tx)
	exists, err := rel.Exists(ctx, userID, id, relationship.Follows)
	if err != nil {
		return false, err
	}
	if !exists {
		edge := &relationship.Edge{
			FromID:     userID,
			ToID:       id,
			FromEntity: relationship.TypeUser,
			ToEntity:   s.cfg.EntityType,
			Relation:   relationship.Follows,
		}
		if err := rel.Insert(ctx, edge); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	return !exists, nil
}

// DeleteFollower removes a FOLLOWS edge. Unversioned, like AddFollower.
func (s *Store[T]) DeleteFollower(ctx context.Context, id, userID uuid.UUID) error {
	removed, err := s.rel.Delete(ctx, userID, id, relationship.Follows)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NewNotFound("follower", userID.String())
	}
	return nil
}

// ListAfter returns one ascending page. The cursor in After continues the
// walk; Before points back at the first row when this is not the first page.
func (s *Store[T]) ListAfter(ctx context.Context, prefix string, limit int, afterCursor string, fields Fields, include Include) (*Page[T], error) {
	after, err := DecodeCursor(afterCursor)
	if err != nil {
		return nil, err
	}

	docs, err := s.dao.ListAfter(ctx, prefix, limit+1, after, include)
	if err != nil {
		return nil, err
	}

	page := &Page[T]{Data: make([]T, 0, len(docs))}
	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	for _, doc := range docs {
		e, err := s.decode(doc)
		if err != nil {
			return nil, err
		}
		if err := s.setFields(ctx, s.db, e, fields); err != nil {
			return nil, err
		}
		page.Data = append(page.Data, e)
	}

	if hasMore && len(page.Data) > 0 {
		page.After = EncodeCursor(sortKeyOf(page.Data[len(page.Data)-1]))
	}
	if afterCursor != "" && len(page.Data) > 0 {
		page.Before = EncodeCursor(sortKeyOf(page.Data[0]))
	}

	page.Total, err = s.dao.Count(ctx, prefix, include)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// ListBefore is the mirror of ListAfter, walking back from a cursor.
func (s *Store[T]) ListBefore(ctx context.Context, prefix string, limit int, beforeCursor string, fields Fields, include Include) (*Page[T], error) {
	before, err := DecodeCursor(beforeCursor)
	if err != nil {
		return nil, err
	}

	docs, err := s.dao.ListBefore(ctx, prefix, limit+1, before, include)
	if err != nil {
		return nil, err
	}

	// The extra row, when present, is the furthest back and proves there is
	// an earlier page. Rows come back ascending.
	hasEarlier := len(docs) > limit
	if hasEarlier {
		docs = docs[1:]
	}

	page := &Page[T]{Data: make([]T, 0, len(docs))}
	for _, doc := range docs {
		e, err := s.decode(doc)
		if err != nil {
			return nil, err
		}
		if err := s.setFields(ctx, s.db, e, fields); err != nil {
			return nil, err
		}
		page.Data = append(page.Data, e)
	}

	if len(page.Data) > 0 {
		if hasEarlier {
			page.Before = EncodeCursor(sortKeyOf(page.Data[0]))
		}
		page.After = EncodeCursor(sortKeyOf(page.Data[len(page.Data)-1]))
	}

	page.Total, err = s.dao.Count(ctx, prefix, include)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Count returns the number of documents, optionally under an FQN prefix.
func (s *Store[T]) Count(ctx context.Context, prefix string, include Include) (int, error) {
	return s.dao.Count(ctx, prefix, include)
}

// History lists an entity's versions, newest first, current included.
type History struct {
	EntityType string            `json:"entityType"`
	Versions   []json.RawMessage `json:"versions"`
}

// GetVersion returns the snapshot of one version, falling back to the live
// document when the requested version is the current one.
func (s *Store[T]) GetVersion(ctx context.Context, id uuid.UUID, version float64) (T, error) {
	var zero T

	storedDoc, err := s.dao.FindByID(ctx, id, IncludeAll)
	if err != nil {
		return zero, err
	}
	if storedDoc == nil {
		return zero, apperror.NewNotFound(s.cfg.EntityType, id.String())
	}

	current, err := s.decode(storedDoc)
	if err != nil {
		return zero, err
	}
	key := VersionKey(s.cfg.EntityType, version)
	if key == VersionKey(s.cfg.EntityType, current.EntityCommon().Version) {
		return current, nil
	}

	snapshot, err := s.ext.Get(ctx, id, key)
	if err != nil {
		return zero, err
	}
	if snapshot == nil {
		return zero, apperror.NewNotFound(s.cfg.EntityType+" version", key)
	}
	return s.decode(snapshot)
}

// ListVersions returns the full version history of an entity.
func (s *Store[T]) ListVersions(ctx context.Context, id uuid.UUID) (*History, error) {
	storedDoc, err := s.dao.FindByID(ctx, id, IncludeAll)
	if err != nil {
		return nil, err
	}
	if storedDoc == nil {
		return nil, apperror.NewNotFound(s.cfg.EntityType, id.String())
	}

	prefix := VersionPrefix(s.cfg.EntityType)
	records, err := s.ext.ListPrefix(ctx, id, prefix)
	if err != nil {
		return nil, err
	}

	// Snapshot keys sort lexically, which misorders versions past 9.9, so the
	// history is ordered by parsed version instead.
	sort.Slice(records, func(i, j int) bool {
		vi, _ := strconv.ParseFloat(strings.TrimPrefix(records[i].Extension, prefix), 64)
		vj, _ := strconv.ParseFloat(strings.TrimPrefix(records[j].Extension, prefix), 64)
		return vi > vj
	})

	history := &History{
		EntityType: s.cfg.EntityType,
		Versions:   make([]json.RawMessage, 0, len(records)+1),
	}
	history.Versions = append(history.Versions, json.RawMessage(storedDoc))
	for _, record := range records {
		history.Versions = append(history.Versions, json.RawMessage(record.JSON))
	}
	return history, nil
}

// Reference implements RegisteredStore.
func (s *Store[T]) Reference(ctx context.Context, id uuid.UUID) (*Reference, error) {
	doc, err := s.dao.FindByID(ctx, id, IncludeAll)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NewNotFound(s.cfg.EntityType, id.String())
	}
	return s.toReference(doc)
}

// ReferenceByName implements RegisteredStore.
func (s *Store[T]) ReferenceByName(ctx context.Context, name string) (*Reference, error) {
	doc, err := s.dao.FindByName(ctx, name, IncludeNonDeleted)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.NewNotFound(s.cfg.EntityType, name)
	}
	return s.toReference(doc)
}

func (s *Store[T]) toReference(doc []byte) (*Reference, error) {
	e, err := s.decode(doc)
	if err != nil {
		return nil, err
	}
	c := e.EntityCommon()
	return &Reference{
		ID:                 c.ID,
		Type:               s.cfg.EntityType,
		Name:               c.Name,
		FullyQualifiedName: c.FullyQualifiedName,
		DisplayName:        c.DisplayName,
		Deleted:            c.Deleted,
	}, nil
}

// create runs inside the caller's transaction; Prepare has already run.
func (s *Store[T]) create(ctx context.Context, tx bun.IDB, e T, updatedBy string) error {
	c := e.EntityCommon()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Version = InitialVersion
	c.UpdatedBy = updatedBy
	c.UpdatedAt = time.Now().UTC()
	c.Deleted = false
	c.ChangeDescription = nil

	doc, err := s.marshalDoc(e)
	if err != nil {
		return err
	}
	if err := s.dao.WithTx(tx).Insert(ctx, c.ID, c.SortKey(), doc); err != nil {
		return err
	}

	if err := s.writeOwner(ctx, tx, e, c.Owner); err != nil {
		return err
	}
	if len(c.Tags) > 0 {
		if err := s.tags.WithTx(tx).ApplyAll(ctx, c.SortKey(), c.Tags); err != nil {
			return err
		}
	}
	return s.hooks.StoreRelationships(ctx, tx, e)
}

// update diffs updated against original and persists the outcome: document
// rewrite, edge and tag rewrites, version bump and snapshot when anything
// changed. Runs inside the caller's transaction.
func (s *Store[T]) update(ctx context.Context, tx bun.IDB, original T, storedDoc []byte, updated T, updatedBy string, isPatch bool) error {
	oc := original.EntityCommon()
	uc := updated.EntityCommon()

	uc.ID = oc.ID
	uc.Name = oc.Name

	rec := NewChangeRecorder(oc.Version)

	// A write against a soft-deleted original restores it and its edges;
	// contained children are revived by the caller after commit.
	if oc.Deleted {
		uc.Deleted = false
		rec.RecordChange("deleted", true, false)
		if err := s.rel.WithTx(tx).RecoverSoftDeleteAll(ctx, oc.ID); err != nil {
			return err
		}
	} else {
		uc.Deleted = false
	}

	// PUTs omitting user-authored text never clobber it; patches always win.
	if !isPatch {
		if oc.Description != "" && uc.Description == "" {
			uc.Description = oc.Description
		}
		if oc.DisplayName != "" && uc.DisplayName == "" {
			uc.DisplayName = oc.DisplayName
		}
	}
	rec.RecordChange("description", oc.Description, uc.Description)
	rec.RecordChange("displayName", oc.DisplayName, uc.DisplayName)

	// Owner and tags live in the graph, so the original's must be loaded
	// before diffing.
	if err := s.setFields(ctx, tx, original, NewFields(FieldOwner, FieldTags)); err != nil {
		return err
	}

	if err := s.updateOwner(ctx, tx, original, updated, rec, isPatch); err != nil {
		return err
	}
	if err := s.updateTags(ctx, tx, original, updated, rec); err != nil {
		return err
	}

	if err := s.hooks.UpdateFields(ctx, tx, original, updated, rec, isPatch); err != nil {
		return err
	}

	if rec.Updated() {
		if err := s.ext.WithTx(tx).Put(ctx, oc.ID, VersionKey(s.cfg.EntityType, oc.Version), storedDoc); err != nil {
			return err
		}
		metrics.VersionSnapshots.WithLabelValues(s.cfg.EntityType).Inc()
		uc.Version = NextVersion(oc.Version, rec.Major())
		uc.ChangeDescription = rec.Change()
	} else {
		uc.Version = oc.Version
		uc.ChangeDescription = oc.ChangeDescription
	}
	uc.UpdatedBy = updatedBy
	uc.UpdatedAt = time.Now().UTC()

	doc, err := s.marshalDoc(updated)
	if err != nil {
		return err
	}
	return s.dao.WithTx(tx).Update(ctx, uc.ID, uc.SortKey(), doc, uc.Deleted)
}

// updateOwner applies the owner policy: a patch may set or clear the owner,
// a PUT may only set one. Rewrites the OWNS edge when the owner changed.
func (s *Store[T]) updateOwner(ctx context.Context, tx bun.IDB, original, updated T, rec *ChangeRecorder, isPatch bool) error {
	oc := original.EntityCommon()
	uc := updated.EntityCommon()

	if !isPatch && uc.Owner == nil {
		uc.Owner = oc.Owner
		return nil
	}

	oldID, newID := refID(oc.Owner), refID(uc.Owner)
	if oldID == newID {
		return nil
	}
	rec.RecordChange(FieldOwner, oc.Owner, uc.Owner)

	if oc.Owner != nil {
		if _, err := s.rel.WithTx(tx).Delete(ctx, oc.Owner.ID, oc.ID, relationship.Owns); err != nil {
			return err
		}
	}
	if uc.Owner != nil {
		return s.writeOwner(ctx, tx, updated, uc.Owner)
	}
	return nil
}

func (s *Store[T]) writeOwner(ctx context.Context, tx bun.IDB, e T, owner *Reference) error {
	if owner == nil {
		return nil
	}
	edge := &relationship.Edge{
		FromID:     owner.ID,
		ToID:       e.EntityCommon().ID,
		FromEntity: owner.Type,
		ToEntity:   s.cfg.EntityType,
		Relation:   relationship.Owns,
	}
	return s.rel.WithTx(tx).Insert(ctx, edge)
}

func (s *Store[T]) updateTags(ctx context.Context, tx bun.IDB, original, updated T, rec *ChangeRecorder) error {
	oc := original.EntityCommon()
	uc := updated.EntityCommon()

	sameTag := func(a, b tag.Label) bool { return a.TagFQN == b.TagFQN }
	added, deleted := RecordListChange(rec, FieldTags, oc.Tags, uc.Tags, sameTag, false)
	if len(added) == 0 && len(deleted) == 0 {
		return nil
	}

	tagsRepo := s.tags.WithTx(tx)
	if err := tagsRepo.DeleteByTarget(ctx, oc.SortKey()); err != nil {
		return err
	}
	return tagsRepo.ApplyAll(ctx, uc.SortKey(), uc.Tags)
}

// setFields populates the requested derived fields from the graph and tag
// index, then hands type-specific names to the hook.
func (s *Store[T]) setFields(ctx context.Context, db bun.IDB, e T, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	c := e.EntityCommon()
	rel := s.rel.WithTx(db)

	if fields.Has(FieldOwner) {
		edges, err := rel.FindTo(ctx, c.ID, relationship.Owns, "")
		if err != nil {
			return err
		}
		if len(edges) > 0 {
			owner, err := s.registry.Reference(ctx, edges[0].FromEntity, edges[0].FromID)
			if err != nil {
				return err
			}
			c.Owner = owner
		}
	}

	if fields.Has(FieldFollowers) {
		edges, err := rel.FindTo(ctx, c.ID, relationship.Follows, relationship.TypeUser)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			follower, err := s.registry.Reference(ctx, edge.FromEntity, edge.FromID)
			if err != nil {
				return err
			}
			c.Followers = append(c.Followers, *follower)
		}
	}

	if fields.Has(FieldTags) {
		labels, err := s.tags.WithTx(db).List(ctx, c.SortKey())
		if err != nil {
			return err
		}
		c.Tags = labels
	}

	return s.hooks.SetFields(ctx, db, e, fields)
}

func (s *Store[T]) restorePatchAttributes(original, updated T) {
	oc := original.EntityCommon()
	uc := updated.EntityCommon()
	uc.ID = oc.ID
	uc.Name = oc.Name
	uc.FullyQualifiedName = oc.FullyQualifiedName
	uc.Version = oc.Version
	s.hooks.RestorePatchAttributes(original, updated)
}

func (s *Store[T]) checkVersion(original T, expectedVersion *float64) error {
	if expectedVersion == nil {
		return nil
	}
	current := original.EntityCommon().Version
	if VersionKey(s.cfg.EntityType, *expectedVersion) != VersionKey(s.cfg.EntityType, current) {
		metrics.WriteConflicts.WithLabelValues(s.cfg.EntityType).Inc()
		return apperror.NewConflict(fmt.Sprintf(
			"entity changed concurrently: expected version %.1f, stored version is %.1f",
			*expectedVersion, current))
	}
	return nil
}

// marshalDoc serializes an entity body with derived fields stripped, since
// relationships are never stored inside documents.
func (s *Store[T]) marshalDoc(e T) ([]byte, error) {
	c := e.EntityCommon()
	owner, followers, labels := c.Owner, c.Followers, c.Tags
	c.Owner, c.Followers, c.Tags = nil, nil, nil
	restore := s.hooks.ClearDerived(e)

	doc, err := json.Marshal(e)

	restore()
	c.Owner, c.Followers, c.Tags = owner, followers, labels

	if err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}
	return doc, nil
}

func (s *Store[T]) decode(doc []byte) (T, error) {
	e := s.newFn()
	if err := json.Unmarshal(doc, e); err != nil {
		var zero T
		return zero, apperror.ErrInternal.WithInternal(err)
	}
	return e, nil
}

func sortKeyOf[T Object](e T) string {
	return e.EntityCommon().SortKey()
}

func refID(ref *Reference) uuid.UUID {
	if ref == nil {
		return uuid.Nil
	}
	return ref.ID
}
