package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stall/pkg/catalog"
	"stall/pkg/storage"
	"stall/pkg/storage/sqlstore"
)

func openSQLite(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.SQLite, filepath.Join(t.TempDir(), "stall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	gw := storage.NewGateway(store, storage.JSON{})

	var empty storage.CatalogRecord
	require.NoError(t, gw.Load(ctx, &empty))
	assert.Empty(t, empty.Items)

	first := storage.CatalogRecord{Items: []catalog.Item{{ID: 0, Name: "Tea", Price: 100}}}
	require.NoError(t, gw.Save(ctx, &first))
	second := storage.CatalogRecord{Items: []catalog.Item{{ID: 0, Name: "Tea", Price: 120}, {ID: 1, Name: "Cake", Price: 300}}}
	require.NoError(t, gw.Save(ctx, &second))

	var loaded storage.CatalogRecord
	require.NoError(t, gw.Load(ctx, &loaded))
	assert.Equal(t, second, loaded)

	require.NoError(t, gw.Delete(ctx, storage.KindCatalog))
	assert.ErrorIs(t, gw.Delete(ctx, storage.KindCatalog), storage.ErrNotFound)
}

func TestSQLiteMigrateIsIdempotent(t *testing.T) {
	store := openSQLite(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestPostgresDialectStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	store := sqlstore.New(db, sqlstore.Postgres)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Migrate(ctx))

	mock.ExpectExec(`INSERT INTO records \(kind, body, updated_at\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs("ledger", []byte("{}"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Put(ctx, storage.KindLedger, []byte("{}")))

	mock.ExpectQuery(`SELECT body FROM records WHERE kind = \$1`).
		WithArgs("ledger").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte("{}")))
	data, err := store.Get(ctx, storage.KindLedger)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), data)

	mock.ExpectQuery(`SELECT body FROM records WHERE kind = \$1`).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))
	_, err = store.Get(ctx, storage.KindShop)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	mock.ExpectExec(`DELETE FROM records WHERE kind = \$1`).
		WithArgs("shop").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.Remove(ctx, storage.KindShop), storage.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDialectByName(t *testing.T) {
	d, err := sqlstore.DialectByName("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Driver)

	_, err = sqlstore.DialectByName("duckdb")
	assert.Error(t, err)
}
