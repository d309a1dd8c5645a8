// Package tag maintains the tag association index: which classification or
// glossary labels are applied to which entities, keyed by FQN on both sides
// so subtree operations can work on name prefixes.
package tag

import "github.com/uptrace/bun"

// LabelType records how a label got onto an entity. Persisted as smallint.
type LabelType int16

const (
	LabelManual     LabelType = 0
	LabelDerived    LabelType = 1 // rolled up from a child, e.g. column tag -> table tag
	LabelPropagated LabelType = 2
	LabelAutomated  LabelType = 3
)

// State tracks the review status of a label. Persisted as smallint.
type State int16

const (
	StateSuggested State = 0
	StateConfirmed State = 1
)

// Label is an applied tag as it appears inside entity documents and API
// responses.
type Label struct {
	TagFQN      string    `json:"tagFQN"`
	Description string    `json:"description,omitempty"`
	LabelType   LabelType `json:"labelType"`
	State       State     `json:"state"`
}

// Usage is one row of the shared tag_usage table
type Usage struct {
	bun.BaseModel `bun:"table:tag_usage,alias:tu"`

	TagFQN    string    `bun:"tag_fqn,pk" json:"tagFQN"`
	TargetFQN string    `bun:"target_fqn,pk" json:"targetFQN"`
	LabelType LabelType `bun:"label_type,notnull" json:"labelType"`
	State     State     `bun:"state,notnull" json:"state"`
}
