package relationship

import (
	"fmt"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

// Cardinality constrains how many live edges of a kind may touch an entity.
type Cardinality int

const (
	// Many allows any number of edges.
	Many Cardinality = iota
	// OnePerTarget allows at most one live edge pointing at a given entity
	// (e.g. a single owner).
	OnePerTarget
	// OnePerSource allows at most one live edge starting at a given entity.
	OnePerSource
)

// rule says which (fromType, toType) pairs a kind may connect. An empty
// type set means any entity type.
type rule struct {
	from        []string
	to          []string
	cardinality Cardinality
}

// rules is the single legality table for the graph. Every edge write goes
// through Validate, so adding a new pairing here is the only change needed
// to open up a new kind of link.
var rules = map[Kind][]rule{
	Contains: {
		{from: []string{TypeDatabaseService}, to: []string{TypeDatabase}},
		{from: []string{TypeDatabase}, to: []string{TypeTable}},
		{from: []string{TypeGlossary}, to: []string{TypeGlossaryTerm}},
	},
	Owns: {
		{from: []string{TypeUser, TypeTeam}, to: nil, cardinality: OnePerTarget},
	},
	Follows: {
		{from: []string{TypeUser}, to: nil},
	},
	ParentOf: {
		{from: []string{TypeGlossaryTerm}, to: []string{TypeGlossaryTerm}},
	},
	RelatedTo: {
		{from: []string{TypeGlossaryTerm}, to: []string{TypeGlossaryTerm}},
	},
	Reviews: {
		{from: []string{TypeUser}, to: []string{TypeGlossary, TypeGlossaryTerm}},
	},
	Upstream: {
		{from: []string{TypeTable}, to: []string{TypeTable}},
	},
	Has: {
		// Team membership. Containment is not used here so a recursive
		// team delete can never cascade into user documents.
		{from: []string{TypeTeam}, to: []string{TypeUser}},
	},
	JoinedWith: {
		{from: []string{TypeTable}, to: []string{TypeTable}},
	},
}

// KindCardinality returns the cardinality constraint for an edge, or Many
// when the pairing is unconstrained.
func KindCardinality(kind Kind, fromType, toType string) Cardinality {
	for _, r := range rules[kind] {
		if matches(r.from, fromType) && matches(r.to, toType) {
			return r.cardinality
		}
	}
	return Many
}

// Validate checks that an edge of the given kind is allowed between the two
// entity types. Returns a bad request error naming the offending pairing.
func Validate(kind Kind, fromType, toType string) error {
	for _, r := range rules[kind] {
		if matches(r.from, fromType) && matches(r.to, toType) {
			return nil
		}
	}
	return apperror.NewBadRequest(fmt.Sprintf(
		"relationship %s is not allowed from %s to %s", kind, fromType, toType))
}

func matches(types []string, t string) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
