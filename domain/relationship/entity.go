// Package relationship stores the shared directed-edge graph that links
// catalog entities. Edges live independently of the entity documents; the
// entity stores are the only writers.
package relationship

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Entity type names as they appear in the from_entity/to_entity columns and
// in API payloads. Shared vocabulary for the whole graph.
const (
	TypeDatabaseService = "databaseService"
	TypeDatabase        = "database"
	TypeTable           = "table"
	TypeUser            = "user"
	TypeTeam            = "team"
	TypeGlossary        = "glossary"
	TypeGlossaryTerm    = "glossaryTerm"
)

// Kind identifies the semantics of an edge. Values are persisted in the
// relation column, so existing constants must never be renumbered.
type Kind int16

const (
	Contains   Kind = 0 // parent -> child (service -> database -> table, glossary -> term)
	Owns       Kind = 1 // owner -> entity, at most one live edge per entity
	Follows    Kind = 2 // user -> entity
	ParentOf   Kind = 3 // glossary term -> child term
	RelatedTo  Kind = 4 // glossary term <-> term
	Reviews    Kind = 5 // user -> glossary or term
	Upstream   Kind = 6 // lineage, from upstream to downstream, payload describes the transformation
	Has        Kind = 7 // membership attachment (team -> user)
	JoinedWith Kind = 8 // table -> table, payload carries column join counts
)

var kindNames = map[Kind]string{
	Contains:   "contains",
	Owns:       "owns",
	Follows:    "follows",
	ParentOf:   "parentOf",
	RelatedTo:  "relatedTo",
	Reviews:    "reviews",
	Upstream:   "upstream",
	Has:        "has",
	JoinedWith: "joinedWith",
}

// String returns the API name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Edge is one row of the kb-wide entity_relationship table
type Edge struct {
	bun.BaseModel `bun:"table:entity_relationship,alias:er"`

	FromID     uuid.UUID `bun:"from_id,pk,type:uuid" json:"fromId"`
	ToID       uuid.UUID `bun:"to_id,pk,type:uuid" json:"toId"`
	FromEntity string    `bun:"from_entity,notnull" json:"fromEntity"`
	ToEntity   string    `bun:"to_entity,notnull" json:"toEntity"`
	Relation   Kind      `bun:"relation,pk" json:"relation"`
	JSON       []byte    `bun:"json,type:jsonb" json:"json,omitempty"`
	Deleted    bool      `bun:"deleted,notnull,default:false" json:"deleted"`
}
