package glossary

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/relationship"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
	"github.com/datamesh-labs/catalogd/pkg/fqn"
)

type glossaryHooks struct {
	entity.BaseHooks[*Glossary]

	rel      *relationship.Repository
	registry *entity.Registry
}

func (h *glossaryHooks) Prepare(ctx context.Context, db bun.IDB, g *Glossary, update bool) error {
	if g.Name == "" {
		return apperror.NewBadRequest("glossary name is required")
	}
	g.FullyQualifiedName = g.Name
	return resolveReviewers(ctx, h.registry, g.Reviewers)
}

func (h *glossaryHooks) SetFields(ctx context.Context, db bun.IDB, g *Glossary, fields entity.Fields) error {
	if !fields.Has(FieldReviewers) {
		return nil
	}
	reviewers, err := loadReviewers(ctx, db, h.rel, h.registry, g.ID)
	if err != nil {
		return err
	}
	g.Reviewers = reviewers
	return nil
}

func (h *glossaryHooks) StoreRelationships(ctx context.Context, db bun.IDB, g *Glossary) error {
	return storeReviewers(ctx, db, h.rel, g.ID, relationship.TypeGlossary, g.Reviewers)
}

func (h *glossaryHooks) ClearDerived(g *Glossary) (restore func()) {
	reviewers := g.Reviewers
	g.Reviewers = nil
	return func() { g.Reviewers = reviewers }
}

func (h *glossaryHooks) UpdateFields(ctx context.Context, db bun.IDB, original, updated *Glossary, rec *entity.ChangeRecorder, isPatch bool) error {
	if err := h.SetFields(ctx, db, original, entity.NewFields(FieldReviewers)); err != nil {
		return err
	}
	return updateReviewers(ctx, db, h.rel, rec,
		original.ID, relationship.TypeGlossary, original.Reviewers, updated.Reviewers)
}

type termHooks struct {
	entity.BaseHooks[*GlossaryTerm]

	rel      *relationship.Repository
	registry *entity.Registry
}

func (h *termHooks) Prepare(ctx context.Context, db bun.IDB, t *GlossaryTerm, update bool) error {
	if t.Name == "" {
		return apperror.NewBadRequest("term name is required")
	}

	glossary, err := h.registry.ResolveReference(ctx, relationship.TypeGlossary, t.Glossary)
	if err != nil {
		return err
	}
	t.Glossary = glossary

	if t.Parent != nil {
		parent, err := h.registry.ResolveReference(ctx, relationship.TypeGlossaryTerm, t.Parent)
		if err != nil {
			return err
		}
		if !fqn.IsDescendant(parent.FullyQualifiedName, glossary.FullyQualifiedName) {
			return apperror.NewBadRequest("parent term belongs to a different glossary")
		}
		t.Parent = parent
		t.FullyQualifiedName = fqn.Build(parent.FullyQualifiedName, t.Name)
	} else {
		t.FullyQualifiedName = fqn.Build(glossary.FullyQualifiedName, t.Name)
	}

	for i, related := range t.RelatedTerms {
		ref, err := h.registry.ResolveReference(ctx, relationship.TypeGlossaryTerm, &related)
		if err != nil {
			return err
		}
		t.RelatedTerms[i] = *ref
	}
	return resolveReviewers(ctx, h.registry, t.Reviewers)
}

func (h *termHooks) SetFields(ctx context.Context, db bun.IDB, t *GlossaryTerm, fields entity.Fields) error {
	rel := h.rel.WithTx(db)

	if fields.Has(FieldGlossary) {
		edges, err := rel.FindTo(ctx, t.ID, relationship.Contains, relationship.TypeGlossary)
		if err != nil {
			return err
		}
		if len(edges) > 0 {
			glossary, err := h.registry.Reference(ctx, edges[0].FromEntity, edges[0].FromID)
			if err != nil {
				return err
			}
			t.Glossary = glossary
		}
	}

	if fields.Has(FieldParent) {
		edges, err := rel.FindTo(ctx, t.ID, relationship.ParentOf, relationship.TypeGlossaryTerm)
		if err != nil {
			return err
		}
		if len(edges) > 0 {
			parent, err := h.registry.Reference(ctx, edges[0].FromEntity, edges[0].FromID)
			if err != nil {
				return err
			}
			t.Parent = parent
		}
	}

	if fields.Has(FieldRelatedTerms) {
		outgoing, err := rel.FindFrom(ctx, t.ID, relationship.RelatedTo, relationship.TypeGlossaryTerm)
		if err != nil {
			return err
		}
		incoming, err := rel.FindTo(ctx, t.ID, relationship.RelatedTo, relationship.TypeGlossaryTerm)
		if err != nil {
			return err
		}
		for _, edge := range append(outgoing, incoming...) {
			otherID, otherType := edge.ToID, edge.ToEntity
			if otherID == t.ID {
				otherID, otherType = edge.FromID, edge.FromEntity
			}
			related, err := h.registry.Reference(ctx, otherType, otherID)
			if err != nil {
				return err
			}
			t.RelatedTerms = append(t.RelatedTerms, *related)
		}
	}

	if fields.Has(FieldReviewers) {
		reviewers, err := loadReviewers(ctx, db, h.rel, h.registry, t.ID)
		if err != nil {
			return err
		}
		t.Reviewers = reviewers
	}
	return nil
}

func (h *termHooks) StoreRelationships(ctx context.Context, db bun.IDB, t *GlossaryTerm) error {
	rel := h.rel.WithTx(db)

	// Every term is contained by its glossary regardless of nesting, so a
	// recursive glossary delete reaches the whole tree.
	edge := &relationship.Edge{
		FromID:     t.Glossary.ID,
		ToID:       t.ID,
		FromEntity: relationship.TypeGlossary,
		ToEntity:   relationship.TypeGlossaryTerm,
		Relation:   relationship.Contains,
	}
	if err := rel.Insert(ctx, edge); err != nil {
		return err
	}

	if t.Parent != nil {
		parentEdge := &relationship.Edge{
			FromID:     t.Parent.ID,
			ToID:       t.ID,
			FromEntity: relationship.TypeGlossaryTerm,
			ToEntity:   relationship.TypeGlossaryTerm,
			Relation:   relationship.ParentOf,
		}
		if err := rel.Insert(ctx, parentEdge); err != nil {
			return err
		}
	}

	for _, related := range t.RelatedTerms {
		relatedEdge := &relationship.Edge{
			FromID:     t.ID,
			ToID:       related.ID,
			FromEntity: relationship.TypeGlossaryTerm,
			ToEntity:   relationship.TypeGlossaryTerm,
			Relation:   relationship.RelatedTo,
		}
		if err := rel.Insert(ctx, relatedEdge); err != nil {
			return err
		}
	}

	return storeReviewers(ctx, db, h.rel, t.ID, relationship.TypeGlossaryTerm, t.Reviewers)
}

func (h *termHooks) ClearDerived(t *GlossaryTerm) (restore func()) {
	glossary, parent := t.Glossary, t.Parent
	related, reviewers := t.RelatedTerms, t.Reviewers
	t.Glossary, t.Parent, t.RelatedTerms, t.Reviewers = nil, nil, nil, nil
	return func() {
		t.Glossary, t.Parent, t.RelatedTerms, t.Reviewers = glossary, parent, related, reviewers
	}
}

func (h *termHooks) PatchFields() entity.Fields {
	return entity.NewFields(FieldGlossary, FieldParent)
}

func (h *termHooks) RestorePatchAttributes(original, updated *GlossaryTerm) {
	updated.Glossary = original.Glossary
	updated.Parent = original.Parent
}

func (h *termHooks) UpdateFields(ctx context.Context, db bun.IDB, original, updated *GlossaryTerm, rec *entity.ChangeRecorder, isPatch bool) error {
	sameString := func(a, b string) bool { return a == b }
	entity.RecordListChange(rec, "synonyms", original.Synonyms, updated.Synonyms, sameString, false)

	if err := h.SetFields(ctx, db, original, entity.NewFields(FieldRelatedTerms, FieldReviewers)); err != nil {
		return err
	}

	sameRef := func(a, b entity.Reference) bool { return a.ID == b.ID }
	added, deleted := entity.RecordListChange(rec, "relatedTerms",
		original.RelatedTerms, updated.RelatedTerms, sameRef, false)
	if len(added) > 0 || len(deleted) > 0 {
		rel := h.rel.WithTx(db)
		for _, removed := range deleted {
			if _, err := rel.Delete(ctx, original.ID, removed.ID, relationship.RelatedTo); err != nil {
				return err
			}
			if _, err := rel.Delete(ctx, removed.ID, original.ID, relationship.RelatedTo); err != nil {
				return err
			}
		}
		for _, addedRef := range added {
			edge := &relationship.Edge{
				FromID:     original.ID,
				ToID:       addedRef.ID,
				FromEntity: relationship.TypeGlossaryTerm,
				ToEntity:   relationship.TypeGlossaryTerm,
				Relation:   relationship.RelatedTo,
			}
			if err := rel.Insert(ctx, edge); err != nil {
				return err
			}
		}
	}

	return updateReviewers(ctx, db, h.rel, rec,
		original.ID, relationship.TypeGlossaryTerm, original.Reviewers, updated.Reviewers)
}

// Reviewer handling is identical for glossaries and terms.

func resolveReviewers(ctx context.Context, registry *entity.Registry, reviewers []entity.Reference) error {
	for i, reviewer := range reviewers {
		ref, err := registry.ResolveReference(ctx, relationship.TypeUser, &reviewer)
		if err != nil {
			return err
		}
		reviewers[i] = *ref
	}
	return nil
}

func loadReviewers(ctx context.Context, db bun.IDB, rel *relationship.Repository, registry *entity.Registry, id uuid.UUID) ([]entity.Reference, error) {
	edges, err := rel.WithTx(db).FindTo(ctx, id, relationship.Reviews, relationship.TypeUser)
	if err != nil {
		return nil, err
	}

	var reviewers []entity.Reference
	for _, edge := range edges {
		reviewer, err := registry.Reference(ctx, edge.FromEntity, edge.FromID)
		if err != nil {
			return nil, err
		}
		reviewers = append(reviewers, *reviewer)
	}
	return reviewers, nil
}

func storeReviewers(ctx context.Context, db bun.IDB, rel *relationship.Repository, id uuid.UUID, entityType string, reviewers []entity.Reference) error {
	bound := rel.WithTx(db)
	for _, reviewer := range reviewers {
		edge := &relationship.Edge{
			FromID:     reviewer.ID,
			ToID:       id,
			FromEntity: relationship.TypeUser,
			ToEntity:   entityType,
			Relation:   relationship.Reviews,
		}
		if err := bound.Insert(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

func updateReviewers(ctx context.Context, db bun.IDB, rel *relationship.Repository, rec *entity.ChangeRecorder, id uuid.UUID, entityType string, oldReviewers, newReviewers []entity.Reference) error {
	sameRef := func(a, b entity.Reference) bool { return a.ID == b.ID }
	added, deleted := entity.RecordListChange(rec, "reviewers", oldReviewers, newReviewers, sameRef, false)
	if len(added) == 0 && len(deleted) == 0 {
		return nil
	}

	bound := rel.WithTx(db)
	for _, removed := range deleted {
		if _, err := bound.Delete(ctx, removed.ID, id, relationship.Reviews); err != nil {
			return err
		}
	}
	return storeReviewers(ctx, db, rel, id, entityType, added)
}
