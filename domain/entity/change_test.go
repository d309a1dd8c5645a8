package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChange(t *testing.T) {
	t.Run("classifies added updated and deleted", func(t *testing.T) {
		rec := NewChangeRecorder(0.1)

		assert.True(t, rec.RecordChange("description", "", "new docs"))
		assert.True(t, rec.RecordChange("displayName", "Orders", "Order Facts"))
		assert.True(t, rec.RecordChange("retention", "30d", ""))

		change := rec.Change()
		require.Len(t, change.FieldsAdded, 1)
		assert.Equal(t, "description", change.FieldsAdded[0].Name)
		require.Len(t, change.FieldsUpdated, 1)
		assert.Equal(t, "Orders", change.FieldsUpdated[0].OldValue)
		require.Len(t, change.FieldsDeleted, 1)
		assert.Equal(t, "30d", change.FieldsDeleted[0].OldValue)
		assert.Equal(t, 0.1, change.PreviousVersion)
	})

	t.Run("equal values record nothing", func(t *testing.T) {
		rec := NewChangeRecorder(0.1)

		assert.False(t, rec.RecordChange("description", "same", "same"))
		assert.False(t, rec.RecordChange("owner", nil, nil))
		assert.False(t, rec.Updated())
	})

	t.Run("nil pointer counts as empty", func(t *testing.T) {
		rec := NewChangeRecorder(0.1)

		var oldOwner *Reference
		newOwner := &Reference{Name: "alice", Type: "user"}
		assert.True(t, rec.RecordChange("owner", oldOwner, newOwner))

		change := rec.Change()
		require.Len(t, change.FieldsAdded, 1)
		assert.Empty(t, change.FieldsUpdated)
	})
}

func TestRecordListChange(t *testing.T) {
	type column struct{ Name string }
	sameName := func(a, b column) bool { return a.Name == b.Name }

	t.Run("one entry per direction not per item", func(t *testing.T) {
		rec := NewChangeRecorder(0.1)
		oldCols := []column{{"a"}, {"b"}, {"c"}}
		newCols := []column{{"a"}, {"d"}, {"e"}}

		added, deleted := RecordListChange(rec, "columns", oldCols, newCols, sameName, false)

		assert.Len(t, added, 2)
		assert.Len(t, deleted, 2)
		change := rec.Change()
		require.Len(t, change.FieldsAdded, 1)
		require.Len(t, change.FieldsDeleted, 1)
		assert.Equal(t, "columns", change.FieldsAdded[0].Name)
		assert.False(t, rec.Major())
	})

	t.Run("structural deletion is a major change", func(t *testing.T) {
		rec := NewChangeRecorder(0.2)
		oldCols := []column{{"a"}, {"b"}}
		newCols := []column{{"a"}}

		_, deleted := RecordListChange(rec, "columns", oldCols, newCols, sameName, true)

		assert.Len(t, deleted, 1)
		assert.True(t, rec.Updated())
		assert.True(t, rec.Major())
	})

	t.Run("structural addition stays minor", func(t *testing.T) {
		rec := NewChangeRecorder(0.2)
		oldCols := []column{{"a"}}
		newCols := []column{{"a"}, {"b"}}

		RecordListChange(rec, "columns", oldCols, newCols, sameName, true)

		assert.True(t, rec.Updated())
		assert.False(t, rec.Major())
	})

	t.Run("identical lists record nothing", func(t *testing.T) {
		rec := NewChangeRecorder(0.2)
		cols := []column{{"a"}, {"b"}}

		RecordListChange(rec, "columns", cols, cols, sameName, true)

		assert.False(t, rec.Updated())
	})
}

func TestNextVersion(t *testing.T) {
	assert.Equal(t, 0.2, NextVersion(0.1, false))
	assert.Equal(t, 1.2, NextVersion(0.2, true))
	assert.Equal(t, 2.0, NextVersion(1.0, true))

	t.Run("no float noise over many bumps", func(t *testing.T) {
		v := InitialVersion
		for i := 0; i < 10; i++ {
			v = NextVersion(v, false)
		}
		assert.Equal(t, 1.1, v)
	})

	t.Run("version history keys stay stable", func(t *testing.T) {
		assert.Equal(t, "table.version.0.1", VersionKey("table", 0.1))
		assert.Equal(t, "table.version.1.2", VersionKey("table", NextVersion(0.2, true)))
	})
}
