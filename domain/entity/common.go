// Package entity implements the generic versioned document store that every
// concrete catalog type is built on: one JSON document table per type, a
// shared relationship graph, a tag index and append-only version snapshots,
// with field-level change tracking driving an optimistic version number.
package entity

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/datamesh-labs/catalogd/domain/tag"
)

// Reference points at another entity without embedding it. References are
// reconstructed from the graph on read, never stored inside documents.
type Reference struct {
	ID                 uuid.UUID `json:"id"`
	Type               string    `json:"type"`
	Name               string    `json:"name,omitempty"`
	FullyQualifiedName string    `json:"fullyQualifiedName,omitempty"`
	DisplayName        string    `json:"displayName,omitempty"`
	Deleted            bool      `json:"deleted,omitempty"`
}

// FieldChange records one field-level difference for the audit trail. Values
// are serialized JSON so history can be replayed without the original types.
type FieldChange struct {
	Name     string `json:"name"`
	OldValue any    `json:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty"`
}

// ChangeDescription is the diff produced by one update. Rebuilt from scratch
// on every mutating call; persisted only when something actually changed.
type ChangeDescription struct {
	FieldsAdded     []FieldChange `json:"fieldsAdded,omitempty"`
	FieldsUpdated   []FieldChange `json:"fieldsUpdated,omitempty"`
	FieldsDeleted   []FieldChange `json:"fieldsDeleted,omitempty"`
	PreviousVersion float64       `json:"previousVersion"`
}

// Common carries the fields shared by every entity document. Concrete types
// embed it and add their own attribute bag.
//
// Owner, Followers and Tags are derived: populated on read only when asked
// for, and stripped before the document body is written.
type Common struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	FullyQualifiedName string             `json:"fullyQualifiedName,omitempty"`
	DisplayName        string             `json:"displayName,omitempty"`
	Description        string             `json:"description,omitempty"`
	Version            float64            `json:"version"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	UpdatedBy          string             `json:"updatedBy,omitempty"`
	Deleted            bool               `json:"deleted,omitempty"`
	ChangeDescription  *ChangeDescription `json:"changeDescription,omitempty"`

	Owner     *Reference  `json:"owner,omitempty"`
	Followers []Reference `json:"followers,omitempty"`
	Tags      []tag.Label `json:"tags,omitempty"`
}

// EntityCommon returns the embedded common fields. Implemented by embedding.
func (c *Common) EntityCommon() *Common { return c }

// SortKey is the pagination and uniqueness key: the FQN when the type has a
// containment hierarchy, the plain name otherwise.
func (c *Common) SortKey() string {
	if c.FullyQualifiedName != "" {
		return c.FullyQualifiedName
	}
	return c.Name
}

// Object is the constraint every stored entity type satisfies by embedding
// Common. T is always a pointer type.
type Object interface {
	EntityCommon() *Common
}

// InitialVersion is the version assigned on create.
const InitialVersion = 0.1

// NextVersion bumps a version by 0.1, or by 1.0 for a major change, rounded
// to one decimal so float noise never leaks into stored versions.
func NextVersion(v float64, major bool) float64 {
	if major {
		return math.Round((v+1.0)*10) / 10
	}
	return math.Round((v+0.1)*10) / 10
}
