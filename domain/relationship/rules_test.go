package relationship

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

func TestValidate(t *testing.T) {
	t.Run("allows known pairings", func(t *testing.T) {
		assert.NoError(t, Validate(Contains, TypeDatabaseService, TypeDatabase))
		assert.NoError(t, Validate(Contains, TypeDatabase, TypeTable))
		assert.NoError(t, Validate(Contains, TypeGlossary, TypeGlossaryTerm))
		assert.NoError(t, Validate(Owns, TypeUser, TypeTable))
		assert.NoError(t, Validate(Owns, TypeTeam, TypeDatabase))
		assert.NoError(t, Validate(Follows, TypeUser, TypeTable))
		assert.NoError(t, Validate(ParentOf, TypeGlossaryTerm, TypeGlossaryTerm))
		assert.NoError(t, Validate(Reviews, TypeUser, TypeGlossary))
		assert.NoError(t, Validate(Upstream, TypeTable, TypeTable))
		assert.NoError(t, Validate(JoinedWith, TypeTable, TypeTable))
		assert.NoError(t, Validate(Has, TypeTeam, TypeUser))
	})

	t.Run("rejects illegal pairings", func(t *testing.T) {
		// containment must follow the hierarchy
		require.Error(t, Validate(Contains, TypeDatabaseService, TypeTable))
		require.Error(t, Validate(Contains, TypeTable, TypeDatabase))

		// only users and teams can own
		require.Error(t, Validate(Owns, TypeTable, TypeDatabase))

		// only users can follow or review
		require.Error(t, Validate(Follows, TypeTeam, TypeTable))
		require.Error(t, Validate(Reviews, TypeTeam, TypeGlossary))

		// lineage and joins are table-to-table
		require.Error(t, Validate(Upstream, TypeDatabase, TypeTable))
		require.Error(t, Validate(JoinedWith, TypeUser, TypeTable))

		// membership is team-to-user only
		require.Error(t, Validate(Has, TypeTable, TypeTable))
		require.Error(t, Validate(Has, TypeUser, TypeTeam))
	})

	t.Run("rejections are bad request errors", func(t *testing.T) {
		err := Validate(Owns, TypeTable, TypeDatabase)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.ErrBadRequest))
		assert.Contains(t, err.Error(), "owns")
	})
}

func TestKindCardinality(t *testing.T) {
	assert.Equal(t, OnePerTarget, KindCardinality(Owns, TypeUser, TypeTable))
	assert.Equal(t, OnePerTarget, KindCardinality(Owns, TypeTeam, TypeGlossaryTerm))
	assert.Equal(t, Many, KindCardinality(Follows, TypeUser, TypeTable))
	assert.Equal(t, Many, KindCardinality(Contains, TypeDatabase, TypeTable))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "contains", Contains.String())
	assert.Equal(t, "joinedWith", JoinedWith.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
