// Package databases manages database documents: the middle tier of the
// service -> database -> table containment hierarchy.
package databases

import (
	"github.com/datamesh-labs/catalogd/domain/entity"
)

// Database is a logical database inside a service. It CONTAINS tables.
type Database struct {
	entity.Common

	// Service is the containing database service. Immutable after create;
	// reconstructed from the graph on read.
	Service *entity.Reference `json:"service,omitempty"`
}

// FieldService selects the containing service reference on reads.
const FieldService = "service"
