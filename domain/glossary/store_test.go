package glossary_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/glossary"
	"github.com/datamesh-labs/catalogd/internal/testutil"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

func createGlossary(t *testing.T, c *testutil.Catalog, name string) *glossary.Glossary {
	g := &glossary.Glossary{}
	g.Name = name
	created, err := c.Glossaries.Create(context.Background(), g, "admin")
	require.NoError(t, err)
	return created
}

func newTerm(g *glossary.Glossary, name string) *glossary.GlossaryTerm {
	term := &glossary.GlossaryTerm{
		Glossary: &entity.Reference{ID: g.ID, Type: "glossary"},
	}
	term.Name = name
	return term
}

func TestTermTree(t *testing.T) {
	c := testutil.NewCatalog(t, "glossary_tree")
	ctx := context.Background()

	g := createGlossary(t, c, "business")

	customer, err := c.Terms.Create(ctx, newTerm(g, "customer"), "admin")
	require.NoError(t, err)
	assert.Equal(t, "business.customer", customer.FullyQualifiedName)

	// Nested terms build their FQN from the parent term.
	nested := newTerm(g, "churned")
	nested.Parent = &entity.Reference{ID: customer.ID, Type: "glossaryTerm"}
	churned, err := c.Terms.Create(ctx, nested, "admin")
	require.NoError(t, err)
	assert.Equal(t, "business.customer.churned", churned.FullyQualifiedName)

	got, err := c.Terms.Get(ctx, churned.ID,
		entity.NewFields(glossary.FieldGlossary, glossary.FieldParent), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.NotNil(t, got.Glossary)
	assert.Equal(t, g.ID, got.Glossary.ID)
	require.NotNil(t, got.Parent)
	assert.Equal(t, customer.ID, got.Parent.ID)

	// A recursive glossary delete removes the whole vocabulary, nested
	// terms included.
	require.NoError(t, c.Glossaries.Delete(ctx, g.ID, true, false, "admin"))
	_, err = c.Terms.Get(ctx, churned.ID, nil, entity.IncludeNonDeleted)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestParentMustBelongToGlossary(t *testing.T) {
	c := testutil.NewCatalog(t, "glossary_parent")
	ctx := context.Background()

	business := createGlossary(t, c, "business")
	finance := createGlossary(t, c, "finance")

	revenue, err := c.Terms.Create(ctx, newTerm(finance, "revenue"), "admin")
	require.NoError(t, err)

	stray := newTerm(business, "arr")
	stray.Parent = &entity.Reference{ID: revenue.ID, Type: "glossaryTerm"}
	_, err = c.Terms.Create(ctx, stray, "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestRelatedTermsSymmetric(t *testing.T) {
	c := testutil.NewCatalog(t, "glossary_related")
	ctx := context.Background()

	g := createGlossary(t, c, "business")
	customer, err := c.Terms.Create(ctx, newTerm(g, "customer"), "admin")
	require.NoError(t, err)

	linked := newTerm(g, "account")
	linked.RelatedTerms = []entity.Reference{{ID: customer.ID, Type: "glossaryTerm"}}
	account, err := c.Terms.Create(ctx, linked, "admin")
	require.NoError(t, err)

	// The link is visible from both ends.
	got, err := c.Terms.Get(ctx, account.ID, entity.NewFields(glossary.FieldRelatedTerms), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, got.RelatedTerms, 1)
	assert.Equal(t, customer.ID, got.RelatedTerms[0].ID)

	other, err := c.Terms.Get(ctx, customer.ID, entity.NewFields(glossary.FieldRelatedTerms), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, other.RelatedTerms, 1)
	assert.Equal(t, account.ID, other.RelatedTerms[0].ID)
}

func TestSynonymsAndReviewers(t *testing.T) {
	c := testutil.NewCatalog(t, "glossary_synonyms")
	ctx := context.Background()

	g := createGlossary(t, c, "business")
	created, err := c.Terms.Create(ctx, newTerm(g, "customer"), "admin")
	require.NoError(t, err)

	update := newTerm(g, "customer")
	update.Synonyms = []string{"client", "account holder"}
	updated, _, err := c.Terms.CreateOrUpdate(ctx, update, "admin", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, updated.Version, 1e-9)
	assert.Equal(t, []string{"client", "account holder"}, updated.Synonyms)

	// Synonyms survive in the document.
	got, err := c.Terms.Get(ctx, created.ID, nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
	assert.Len(t, got.Synonyms, 2)
}
