package entity

import (
	"context"

	"github.com/uptrace/bun"
)

// Hooks is the per-type extension point of the store: the glue a concrete
// entity type supplies so the shared engine can handle its specifics. All
// methods receive the transaction the surrounding store call runs in.
type Hooks[T Object] interface {
	// Prepare derives the FQN, resolves and validates relationship targets
	// and derives tags before any write. update reports whether the entity
	// replaces a stored original.
	Prepare(ctx context.Context, db bun.IDB, e T, update bool) error

	// SetFields populates type-specific derived fields named by the
	// selector. Owner, followers and tags are handled by the store itself.
	SetFields(ctx context.Context, db bun.IDB, e T, fields Fields) error

	// StoreRelationships writes the type-specific edges for a document that
	// was just written: parent containment, reviewers, join edges.
	StoreRelationships(ctx context.Context, db bun.IDB, e T) error

	// ClearDerived unsets type-specific derived fields before the document
	// body is marshalled, returning a function that puts them back.
	ClearDerived(e T) (restore func())

	// PatchFields names type-specific derived fields that must be populated
	// on the document before a patch is applied to it, e.g. an immutable
	// parent reference.
	PatchFields() Fields

	// RestorePatchAttributes copies type-specific protected attributes from
	// the original onto a patched candidate. The store already restores id,
	// name and FQN.
	RestorePatchAttributes(original, updated T)

	// UpdateFields diffs type-specific fields between original and updated,
	// recording changes. Structural list removals should mark the recorder
	// major.
	UpdateFields(ctx context.Context, db bun.IDB, original, updated T, rec *ChangeRecorder, isPatch bool) error
}

// BaseHooks is a no-op Hooks implementation for types with no specifics.
// Concrete hook sets embed it and override what they need.
type BaseHooks[T Object] struct{}

func (BaseHooks[T]) Prepare(ctx context.Context, db bun.IDB, e T, update bool) error {
	return nil
}

func (BaseHooks[T]) SetFields(ctx context.Context, db bun.IDB, e T, fields Fields) error {
	return nil
}

func (BaseHooks[T]) StoreRelationships(ctx context.Context, db bun.IDB, e T) error {
	return nil
}

func (BaseHooks[T]) ClearDerived(e T) (restore func()) {
	return func() {}
}

func (BaseHooks[T]) PatchFields() Fields {
	return nil
}

func (BaseHooks[T]) RestorePatchAttributes(original, updated T) {}

func (BaseHooks[T]) UpdateFields(ctx context.Context, db bun.IDB, original, updated T, rec *ChangeRecorder, isPatch bool) error {
	return nil
}
