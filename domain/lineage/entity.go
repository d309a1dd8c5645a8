// Package lineage records and queries data flow between tables: UPSTREAM
// edges carrying a description of the transformation that feeds one table
// from another.
package lineage

import (
	"github.com/datamesh-labs/catalogd/domain/entity"
)

// EdgeDetails describes how data moves along one lineage edge.
type EdgeDetails struct {
	SQLQuery    string `json:"sqlQuery,omitempty"`
	Description string `json:"description,omitempty"`
	Pipeline    string `json:"pipeline,omitempty"`
}

// AddLineageRequest links an upstream table to the downstream table it
// feeds.
type AddLineageRequest struct {
	FromEntity entity.Reference `json:"fromEntity"`
	ToEntity   entity.Reference `json:"toEntity"`
	Details    *EdgeDetails     `json:"details,omitempty"`
}

// Edge is one resolved lineage edge.
type Edge struct {
	FromEntity entity.Reference `json:"fromEntity"`
	ToEntity   entity.Reference `json:"toEntity"`
	Details    *EdgeDetails     `json:"details,omitempty"`
}

// Lineage is the neighbourhood of one entity: everything feeding it and
// everything it feeds, out to a bounded depth.
type Lineage struct {
	Entity     entity.Reference `json:"entity"`
	Upstream   []Edge           `json:"upstreamEdges,omitempty"`
	Downstream []Edge           `json:"downstreamEdges,omitempty"`
}
