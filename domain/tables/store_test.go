package tables_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesh-labs/catalogd/domain/databases"
	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/services"
	"github.com/datamesh-labs/catalogd/domain/tables"
	"github.com/datamesh-labs/catalogd/domain/tag"
	"github.com/datamesh-labs/catalogd/internal/testutil"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

type fixture struct {
	c  *testutil.Catalog
	db *databases.Database
}

func setup(t *testing.T, suffix string) *fixture {
	c := testutil.NewCatalog(t, suffix)
	ctx := context.Background()

	svc := &services.DatabaseService{ServiceType: "postgres"}
	svc.Name = "warehouse"
	createdSvc, err := c.Services.Create(ctx, svc, "admin")
	require.NoError(t, err)

	db := &databases.Database{
		Service: &entity.Reference{ID: createdSvc.ID, Type: "databaseService"},
	}
	db.Name = "sales"
	createdDB, err := c.Databases.Create(ctx, db, "admin")
	require.NoError(t, err)

	return &fixture{c: c, db: createdDB}
}

func (f *fixture) newTable(name string, columns ...tables.Column) *tables.Table {
	if len(columns) == 0 {
		columns = []tables.Column{
			{Name: "id", DataType: "bigint"},
			{Name: "amount", DataType: "numeric"},
		}
	}
	tbl := &tables.Table{
		Columns:  columns,
		Database: &entity.Reference{ID: f.db.ID, Type: "database"},
	}
	tbl.Name = name
	return tbl
}

func TestColumnRemovalIsMajor(t *testing.T) {
	f := setup(t, "tbl_columns")
	ctx := context.Background()

	created, err := f.c.Tables.Create(ctx, f.newTable("orders"), "admin")
	require.NoError(t, err)

	// Adding a column is a minor change.
	withExtra := f.newTable("orders",
		tables.Column{Name: "id", DataType: "bigint"},
		tables.Column{Name: "amount", DataType: "numeric"},
		tables.Column{Name: "currency", DataType: "text"},
	)
	updated, _, err := f.c.Tables.CreateOrUpdate(ctx, withExtra, "admin", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, updated.Version, 1e-9)

	// Dropping a column is breaking and forces a major bump.
	narrowed := f.newTable("orders",
		tables.Column{Name: "id", DataType: "bigint"},
	)
	updated, _, err = f.c.Tables.CreateOrUpdate(ctx, narrowed, "admin", nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, updated.Version, 1e-9)
	require.NotNil(t, updated.ChangeDescription)
	assert.NotEmpty(t, updated.ChangeDescription.FieldsDeleted)

	// The pre-removal shape survives in the snapshot.
	v02, err := f.c.Tables.GetVersion(ctx, created.ID, 0.2)
	require.NoError(t, err)
	assert.Len(t, v02.Columns, 3)
}

func TestTableVersionScenario(t *testing.T) {
	f := setup(t, "tbl_scenario")
	ctx := context.Background()

	created, err := f.c.Tables.Create(ctx, f.newTable("t1"), "admin")
	require.NoError(t, err)
	assert.Equal(t, entity.InitialVersion, created.Version)

	// Patch the description: minor bump to 0.2.
	patched, err := f.c.Tables.Patch(ctx, created.ID, "admin",
		[]byte(`[{"op": "add", "path": "/description", "value": "order facts"}]`), nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, patched.Version, 1e-9)

	v01, err := f.c.Tables.GetVersion(ctx, created.ID, 0.1)
	require.NoError(t, err)
	assert.Empty(t, v01.Description)

	// Patch away a column: major bump to 1.2.
	narrowed, err := f.c.Tables.Patch(ctx, created.ID, "admin",
		[]byte(`[{"op": "remove", "path": "/columns/1"}]`), nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, narrowed.Version, 1e-9)

	// Soft delete hides the table from lists.
	require.NoError(t, f.c.Tables.Delete(ctx, created.ID, false, false, "admin"))
	page, err := f.c.Tables.ListAfter(ctx, "", 10, "", nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	// Upserting the FQN restores the document; the version continues from
	// where it was, never resetting to the initial one.
	replay := f.newTable("t1", tables.Column{Name: "id", DataType: "bigint"})
	restored, isNew, err := f.c.Tables.CreateOrUpdate(ctx, replay, "admin", nil)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, restored.ID)
	assert.False(t, restored.Deleted)
	assert.Greater(t, restored.Version, 1.2)
}

func TestVersionHistoryNumericOrder(t *testing.T) {
	f := setup(t, "tbl_history")
	ctx := context.Background()

	created, err := f.c.Tables.Create(ctx, f.newTable("orders"), "admin")
	require.NoError(t, err)

	// Alternate a column addition and a column removal until the version
	// passes 9.9, where lexical ordering of the snapshot keys would break.
	wide := []tables.Column{
		{Name: "id", DataType: "bigint"},
		{Name: "amount", DataType: "numeric"},
		{Name: "currency", DataType: "text"},
	}
	narrow := []tables.Column{{Name: "id", DataType: "bigint"}}
	for i := 0; i < 10; i++ {
		_, _, err = f.c.Tables.CreateOrUpdate(ctx, f.newTable("orders", wide...), "admin", nil)
		require.NoError(t, err)
		_, _, err = f.c.Tables.CreateOrUpdate(ctx, f.newTable("orders", narrow...), "admin", nil)
		require.NoError(t, err)
	}

	history, err := f.c.Tables.ListVersions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history.Versions, 21)

	prev := math.Inf(1)
	for _, raw := range history.Versions {
		var doc struct {
			Version float64 `json:"version"`
		}
		require.NoError(t, json.Unmarshal(raw, &doc))
		assert.Less(t, doc.Version, prev)
		prev = doc.Version
	}
	assert.InDelta(t, 0.1, prev, 1e-9)
}

func TestDuplicateColumnNamesRejected(t *testing.T) {
	f := setup(t, "tbl_dupcols")

	tbl := f.newTable("orders",
		tables.Column{Name: "id", DataType: "bigint"},
		tables.Column{Name: "id", DataType: "text"},
	)
	_, err := f.c.Tables.Create(context.Background(), tbl, "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestColumnTags(t *testing.T) {
	f := setup(t, "tbl_coltags")
	ctx := context.Background()

	tbl := f.newTable("customers",
		tables.Column{Name: "id", DataType: "bigint"},
		tables.Column{Name: "email", DataType: "text", Tags: []tag.Label{
			{TagFQN: "PII.Email", LabelType: tag.LabelManual, State: tag.StateConfirmed},
		}},
	)
	created, err := f.c.Tables.Create(ctx, tbl, "admin")
	require.NoError(t, err)

	got, err := f.c.Tables.Get(ctx, created.ID, entity.NewFields(entity.FieldTags), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, got.Columns, 2)
	require.Len(t, got.Columns[1].Tags, 1)
	assert.Equal(t, "PII.Email", got.Columns[1].Tags[0].TagFQN)

	// The tag index targets the column FQN, so usage counting sees it.
	count, err := f.c.Tags.CountByTag(ctx, "PII.Email")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSampleDataRoundTrip(t *testing.T) {
	f := setup(t, "tbl_sample")
	ctx := context.Background()

	created, err := f.c.Tables.Create(ctx, f.newTable("orders"), "admin")
	require.NoError(t, err)
	versionBefore := created.Version

	_, err = f.c.Tables.GetSampleData(ctx, created.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	sample := &tables.SampleData{
		Columns: []string{"id", "amount"},
		Rows:    [][]any{{float64(1), "9.99"}, {float64(2), "100.00"}},
	}
	require.NoError(t, f.c.Tables.PutSampleData(ctx, created.ID, sample))

	got, err := f.c.Tables.GetSampleData(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, sample.Columns, got.Columns)
	assert.Len(t, got.Rows, 2)

	// Ragged rows are rejected.
	bad := &tables.SampleData{Columns: []string{"id"}, Rows: [][]any{{float64(1), "extra"}}}
	err = f.c.Tables.PutSampleData(ctx, created.ID, bad)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))

	// Samples never touch the document version.
	after, err := f.c.Tables.Get(ctx, created.ID, nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
	assert.Equal(t, versionBefore, after.Version)
}

func TestJoinRecording(t *testing.T) {
	f := setup(t, "tbl_joins")
	ctx := context.Background()

	orders, err := f.c.Tables.Create(ctx, f.newTable("orders"), "admin")
	require.NoError(t, err)
	customers, err := f.c.Tables.Create(ctx, f.newTable("customers"), "admin")
	require.NoError(t, err)

	req := &tables.JoinsRequest{
		Joins: []tables.JoinWith{{
			JoinedWithFQN: customers.FullyQualifiedName,
			ColumnJoins: []tables.ColumnJoin{
				{FromColumn: "customer_id", ToColumn: "id", StartDate: "2026-08-01", JoinCount: 10},
			},
		}},
	}
	require.NoError(t, f.c.Tables.RecordJoins(ctx, orders.ID, req))

	// Both sides of the pair see the same usage.
	joins, err := f.c.Tables.GetJoins(ctx, orders.ID)
	require.NoError(t, err)
	require.Len(t, joins, 1)
	assert.Equal(t, customers.ID, joins[0].JoinedWith.ID)
	require.Len(t, joins[0].ColumnJoins, 1)
	assert.Equal(t, 10, joins[0].ColumnJoins[0].JoinCount)

	other, err := f.c.Tables.GetJoins(ctx, customers.ID)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, orders.ID, other[0].JoinedWith.ID)

	// Re-reporting the same day bucket replaces the count instead of
	// duplicating the entry.
	req.Joins[0].ColumnJoins[0].JoinCount = 25
	require.NoError(t, f.c.Tables.RecordJoins(ctx, orders.ID, req))

	joins, err = f.c.Tables.GetJoins(ctx, orders.ID)
	require.NoError(t, err)
	require.Len(t, joins, 1)
	require.Len(t, joins[0].ColumnJoins, 1)
	assert.Equal(t, 25, joins[0].ColumnJoins[0].JoinCount)

	// Self joins are refused.
	self := &tables.JoinsRequest{
		Joins: []tables.JoinWith{{JoinedWithFQN: orders.FullyQualifiedName}},
	}
	err = f.c.Tables.RecordJoins(ctx, orders.ID, self)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}
