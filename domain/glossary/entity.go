// Package glossary manages business glossaries and their terms: a
// containment tree of defined vocabulary, cross-linked with related terms
// and reviewed by users.
package glossary

import (
	"github.com/datamesh-labs/catalogd/domain/entity"
)

// Glossary is a named collection of terms. It CONTAINS every term defined
// under it, nested or not, so a recursive glossary delete removes the whole
// vocabulary.
type Glossary struct {
	entity.Common

	// Reviewers are users who vet term definitions. Reconstructed from
	// REVIEWS edges, populated only when requested.
	Reviewers []entity.Reference `json:"reviewers,omitempty"`
}

// GlossaryTerm is one defined term. Terms nest through a parent term and
// link sideways to related terms.
type GlossaryTerm struct {
	entity.Common

	Synonyms []string `json:"synonyms,omitempty"`

	// Glossary and Parent are immutable after create; reconstructed from
	// the graph on read.
	Glossary *entity.Reference `json:"glossary,omitempty"`
	Parent   *entity.Reference `json:"parent,omitempty"`

	// Derived from RELATED_TO and REVIEWS edges, populated only when
	// requested
	RelatedTerms []entity.Reference `json:"relatedTerms,omitempty"`
	Reviewers    []entity.Reference `json:"reviewers,omitempty"`
}

// Derived field names beyond the ones every entity type has.
const (
	FieldReviewers    = "reviewers"
	FieldGlossary     = "glossary"
	FieldParent       = "parent"
	FieldRelatedTerms = "relatedTerms"
)
