// Package users manages user and team documents. Users follow and own
// entities; teams own entities and hold users as members.
package users

import (
	"github.com/datamesh-labs/catalogd/domain/entity"
)

// User is a person or bot account known to the catalog.
type User struct {
	entity.Common

	Email       string `json:"email,omitempty"`
	IsBot       bool   `json:"isBot,omitempty"`
	Deactivated bool   `json:"deactivated,omitempty"`

	// Derived from membership edges, populated only when requested
	Teams []entity.Reference `json:"teams,omitempty"`
}

// Team groups users. Teams can own entities; their members are linked
// through membership edges, never stored in the document.
type Team struct {
	entity.Common

	// Derived from membership edges, populated only when requested
	Users []entity.Reference `json:"users,omitempty"`
}

// Derived field names beyond the ones every entity type has.
const (
	FieldTeams = "teams"
	FieldUsers = "users"
)
