package entity

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// RegisteredStore is the type-erased face a store shows to other entity
// types: enough to resolve references and cascade deletes across the graph
// without knowing the concrete document type.
type RegisteredStore interface {
	EntityType() string

	// Reference resolves an id into a reference, soft-deleted included.
	Reference(ctx context.Context, id uuid.UUID) (*Reference, error)

	// ReferenceByName resolves a live entity's FQN into a reference.
	ReferenceByName(ctx context.Context, name string) (*Reference, error)

	// CascadeDelete deletes the entity and its contained subtree with the
	// given hardness. Runs in its own transactions per entity.
	CascadeDelete(ctx context.Context, id uuid.UUID, hardDelete bool, updatedBy string) error

	// CascadeRestore undeletes the entity and its contained subtree,
	// mirroring a recursive soft delete.
	CascadeRestore(ctx context.Context, id uuid.UUID, updatedBy string) error
}

// FollowerValidator is implemented by stores whose entities can follow
// others, to reject followers that are not in a state to follow.
type FollowerValidator interface {
	ValidateFollower(ctx context.Context, id uuid.UUID) error
}

// Registry maps entity type names to their stores. Containment edges cross
// type boundaries (database CONTAINS table), so recursive delete and
// reference resolution dispatch through it.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]RegisteredStore
}

// NewRegistry creates an empty store registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]RegisteredStore)}
}

// Register adds a store under its entity type name. Each domain module
// registers its store on startup.
func (r *Registry) Register(s RegisteredStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.EntityType()] = s
}

// Get returns the store for an entity type.
func (r *Registry) Get(entityType string) (RegisteredStore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[entityType]
	if !ok {
		return nil, apperror.NewBadRequest("unknown entity type: " + entityType)
	}
	return s, nil
}

// Reference resolves (type, id) into a reference via the owning store.
func (r *Registry) Reference(ctx context.Context, entityType string, id uuid.UUID) (*Reference, error) {
	s, err := r.Get(entityType)
	if err != nil {
		return nil, err
	}
	return s.Reference(ctx, id)
}

// ReferenceByName resolves (type, FQN) into a reference via the owning
// store.
func (r *Registry) ReferenceByName(ctx context.Context, entityType, name string) (*Reference, error) {
	s, err := r.Get(entityType)
	if err != nil {
		return nil, err
	}
	return s.ReferenceByName(ctx, name)
}

// ResolveReference fills in a partial reference: by id when one is set, by
// FQN otherwise. The resolved type must match.
func (r *Registry) ResolveReference(ctx context.Context, entityType string, ref *Reference) (*Reference, error) {
	if ref == nil {
		return nil, apperror.NewBadRequest("missing " + entityType + " reference")
	}
	if ref.Type != "" && ref.Type != entityType {
		return nil, apperror.NewBadRequest("reference must be of type " + entityType)
	}
	if ref.ID != uuid.Nil {
		return r.Reference(ctx, entityType, ref.ID)
	}
	if name := ref.FullyQualifiedName; name != "" {
		return r.ReferenceByName(ctx, entityType, name)
	}
	if ref.Name != "" {
		return r.ReferenceByName(ctx, entityType, ref.Name)
	}
	return nil, apperror.NewBadRequest(entityType + " reference needs an id or name")
}

// Module provides the shared entity infrastructure
var Module = fx.Module("entity",
	fx.Provide(
		NewRegistry,
		NewExtensionRepository,
	),
)
