package entity

import (
	"strings"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Include controls whether reads see live, soft-deleted or all documents.
type Include int

const (
	IncludeNonDeleted Include = iota
	IncludeDeleted
	IncludeAll
)

// ParseInclude maps the include= query parameter onto an Include. Empty
// means live documents only.
func ParseInclude(s string) (Include, error) {
	switch strings.ToLower(s) {
	case "", "non-deleted":
		return IncludeNonDeleted, nil
	case "deleted":
		return IncludeDeleted, nil
	case "all":
		return IncludeAll, nil
	default:
		return IncludeNonDeleted, apperror.NewBadRequest("invalid include value: " + s)
	}
}

// Names of the derived fields the store itself knows how to populate.
// Concrete types may define more, resolved through their SetFields hook.
const (
	FieldOwner     = "owner"
	FieldFollowers = "followers"
	FieldTags      = "tags"
)

// Fields selects which derived fields a read should populate. Unrequested
// fields stay unset and cost no graph queries.
type Fields map[string]bool

// ParseFields builds a selector from a comma-separated fields= parameter.
func ParseFields(param string) Fields {
	f := Fields{}
	for _, name := range strings.Split(param, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			f[name] = true
		}
	}
	return f
}

// NewFields builds a selector from explicit field names.
func NewFields(names ...string) Fields {
	f := Fields{}
	for _, name := range names {
		f[name] = true
	}
	return f
}

// Has reports whether a field was requested.
func (f Fields) Has(name string) bool {
	return f[name]
}
