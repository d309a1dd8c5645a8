// Package services manages database service documents: the root containers
// of the database -> table hierarchy, holding connection details for the
// source system.
package services

import (
	"github.com/datamesh-labs/catalogd/domain/entity"
)

// DatabaseService is a source system the catalog describes, e.g. a
// warehouse or an RDBMS instance. It CONTAINS databases.
type DatabaseService struct {
	entity.Common

	// ServiceType names the source technology (postgres, redshift, ...).
	// Immutable after create.
	ServiceType string      `json:"serviceType"`
	Connection  *Connection `json:"connection,omitempty"`
}

// Connection holds how to reach the source system. The config bag carries
// driver-specific settings verbatim.
type Connection struct {
	URL      string         `json:"url,omitempty"`
	Username string         `json:"username,omitempty"`
	Database string         `json:"database,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}
