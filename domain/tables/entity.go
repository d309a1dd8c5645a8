// Package tables manages table documents: the leaf of the containment
// hierarchy, carrying a structural column list, sample data, join usage and
// lineage edges.
package tables

import (
	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/tag"
)

// Table is a table (or view) inside a database.
type Table struct {
	entity.Common

	TableType string   `json:"tableType,omitempty"`
	Columns   []Column `json:"columns"`

	// Database is the containing database. Immutable after create;
	// reconstructed from the graph on read.
	Database *entity.Reference `json:"database,omitempty"`

	// SampleData lives in the extension table, populated only when requested
	SampleData *SampleData `json:"sampleData,omitempty"`

	// Joins are reconstructed from JOINED_WITH edges, populated only when
	// requested
	Joins []TableJoin `json:"joins,omitempty"`
}

// Column is one column of a table. The column list is structural: removing
// a column is a breaking change and forces a major version bump.
type Column struct {
	Name            string      `json:"name"`
	DataType        string      `json:"dataType"`
	Description     string      `json:"description,omitempty"`
	OrdinalPosition int         `json:"ordinalPosition,omitempty"`
	Tags            []tag.Label `json:"tags,omitempty"`
}

// SampleData is a small row sample stored as a side blob, never part of the
// versioned document.
type SampleData struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ColumnJoin counts how often two columns were joined within one day
// bucket. Stored as the JOINED_WITH edge payload.
type ColumnJoin struct {
	FromColumn string `json:"fromColumn"`
	ToColumn   string `json:"toColumn"`
	StartDate  string `json:"startDate"`
	JoinCount  int    `json:"joinCount"`
}

// TableJoin reports the join usage between this table and one other.
type TableJoin struct {
	JoinedWith  entity.Reference `json:"joinedWith"`
	ColumnJoins []ColumnJoin     `json:"columnJoins"`
}

// JoinsRequest records observed joins against other tables, addressed by
// their FQN.
type JoinsRequest struct {
	Joins []JoinWith `json:"joins"`
}

// JoinWith is the reported join usage against one other table.
type JoinWith struct {
	JoinedWithFQN string       `json:"joinedWithFQN"`
	ColumnJoins   []ColumnJoin `json:"columnJoins"`
}

// Derived field names beyond the ones every entity type has.
const (
	FieldDatabase   = "database"
	FieldSampleData = "sampleData"
	FieldJoins      = "joins"
)

// sampleDataKey is the extension key table samples are stored under.
const sampleDataKey = "table.sampleData"
