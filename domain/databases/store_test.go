package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesh-labs/catalogd/domain/databases"
	"github.com/datamesh-labs/catalogd/domain/entity"
	"github.com/datamesh-labs/catalogd/domain/services"
	"github.com/datamesh-labs/catalogd/domain/tables"
	"github.com/datamesh-labs/catalogd/internal/testutil"
	"github.com/datamesh-labs/catalogd/pkg/apperror"
)

type fixture struct {
	c       *testutil.Catalog
	service *services.DatabaseService
}

func setup(t *testing.T, suffix string) *fixture {
	c := testutil.NewCatalog(t, suffix)

	svc := &services.DatabaseService{ServiceType: "postgres"}
	svc.Name = "warehouse"
	created, err := c.Services.Create(context.Background(), svc, "admin")
	require.NoError(t, err)

	return &fixture{c: c, service: created}
}

func (f *fixture) createDatabase(t *testing.T, name string) *databases.Database {
	db := &databases.Database{
		Service: &entity.Reference{ID: f.service.ID, Type: "databaseService"},
	}
	db.Name = name
	created, err := f.c.Databases.Create(context.Background(), db, "admin")
	require.NoError(t, err)
	return created
}

func (f *fixture) createTable(t *testing.T, dbRef *databases.Database, name string) *tables.Table {
	tbl := &tables.Table{
		Columns: []tables.Column{
			{Name: "id", DataType: "bigint"},
			{Name: "payload", DataType: "jsonb"},
		},
		Database: &entity.Reference{ID: dbRef.ID, Type: "database"},
	}
	tbl.Name = name
	created, err := f.c.Tables.Create(context.Background(), tbl, "admin")
	require.NoError(t, err)
	return created
}

func TestDatabaseFQNBuiltFromService(t *testing.T) {
	f := setup(t, "db_fqn")

	db := f.createDatabase(t, "sales")
	assert.Equal(t, "warehouse.sales", db.FullyQualifiedName)

	tbl := f.createTable(t, db, "orders")
	assert.Equal(t, "warehouse.sales.orders", tbl.FullyQualifiedName)

	// The containing service comes back from the graph, not the document.
	got, err := f.c.Databases.Get(context.Background(), db.ID, entity.NewFields(databases.FieldService), entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.NotNil(t, got.Service)
	assert.Equal(t, f.service.ID, got.Service.ID)
}

func TestDatabaseUnknownServiceRejected(t *testing.T) {
	f := setup(t, "db_badparent")

	db := &databases.Database{
		Service: &entity.Reference{Type: "databaseService", Name: "no-such-service"},
	}
	db.Name = "sales"
	_, err := f.c.Databases.Create(context.Background(), db, "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeleteNonEmptyContainerRejected(t *testing.T) {
	f := setup(t, "db_notempty")
	ctx := context.Background()

	db := f.createDatabase(t, "sales")
	f.createTable(t, db, "orders")

	err := f.c.Databases.Delete(ctx, db.ID, false, false, "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrIllegalState))
}

func TestRecursiveSoftDeleteCascades(t *testing.T) {
	f := setup(t, "db_cascade")
	ctx := context.Background()

	db := f.createDatabase(t, "sales")
	tbl := f.createTable(t, db, "orders")

	require.NoError(t, f.c.Services.Delete(ctx, f.service.ID, true, false, "admin"))

	// The whole subtree is soft deleted.
	for _, check := range []func() error{
		func() error { _, err := f.c.Services.Get(ctx, f.service.ID, nil, entity.IncludeNonDeleted); return err },
		func() error { _, err := f.c.Databases.Get(ctx, db.ID, nil, entity.IncludeNonDeleted); return err },
		func() error { _, err := f.c.Tables.Get(ctx, tbl.ID, nil, entity.IncludeNonDeleted); return err },
	} {
		assert.True(t, errors.Is(check(), apperror.ErrNotFound))
	}

	deletedTable, err := f.c.Tables.Get(ctx, tbl.ID, nil, entity.IncludeDeleted)
	require.NoError(t, err)
	assert.True(t, deletedTable.Deleted)
}

func TestRestoreRevivesContainedSubtree(t *testing.T) {
	f := setup(t, "db_restore")
	ctx := context.Background()

	db := f.createDatabase(t, "sales")
	tbl := f.createTable(t, db, "orders")

	require.NoError(t, f.c.Services.Delete(ctx, f.service.ID, true, false, "admin"))

	// Writing against the deleted service restores it together with the
	// contained database and table.
	svc := &services.DatabaseService{ServiceType: "postgres"}
	svc.Name = "warehouse"
	restored, isNew, err := f.c.Services.CreateOrUpdate(ctx, svc, "admin", nil)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, f.service.ID, restored.ID)

	gotDB, err := f.c.Databases.Get(ctx, db.ID, nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
	assert.False(t, gotDB.Deleted)
	assert.InDelta(t, 0.3, gotDB.Version, 1e-9)

	gotTbl, err := f.c.Tables.Get(ctx, tbl.ID, nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
	assert.False(t, gotTbl.Deleted)
	assert.InDelta(t, 0.3, gotTbl.Version, 1e-9)

	// The revived container behaves like one: a plain delete sees its live
	// children again.
	err = f.c.Databases.Delete(ctx, db.ID, false, false, "admin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrIllegalState))
}

func TestRecursiveHardDeleteCascades(t *testing.T) {
	f := setup(t, "db_hardcascade")
	ctx := context.Background()

	db := f.createDatabase(t, "sales")
	tbl := f.createTable(t, db, "orders")

	require.NoError(t, f.c.Services.Delete(ctx, f.service.ID, true, true, "admin"))

	_, err := f.c.Tables.Get(ctx, tbl.ID, nil, entity.IncludeAll)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	_, err = f.c.Databases.Get(ctx, db.ID, nil, entity.IncludeAll)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDatabaseListByParent(t *testing.T) {
	f := setup(t, "db_parent")
	ctx := context.Background()

	f.createDatabase(t, "sales")
	f.createDatabase(t, "marketing")

	other := &services.DatabaseService{ServiceType: "mysql"}
	other.Name = "legacy"
	otherSvc, err := f.c.Services.Create(ctx, other, "admin")
	require.NoError(t, err)
	otherDB := &databases.Database{
		Service: &entity.Reference{ID: otherSvc.ID, Type: "databaseService"},
	}
	otherDB.Name = "sales"
	_, err = f.c.Databases.Create(ctx, otherDB, "admin")
	require.NoError(t, err)

	page, err := f.c.Databases.ListAfter(ctx, "warehouse", 10, "", nil, entity.IncludeNonDeleted)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "warehouse.marketing", page.Data[0].FullyQualifiedName)
	assert.Equal(t, "warehouse.sales", page.Data[1].FullyQualifiedName)
	assert.Equal(t, 2, page.Total)
}
