package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stall/pkg/storage"
	"stall/pkg/storage/filestore"
)

func TestPutGetRemove(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := filestore.New(dir, "json")
	require.NoError(t, err)

	_, err = store.Get(ctx, storage.KindLedger)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Put(ctx, storage.KindLedger, []byte(`{"archives":[]}`)))
	assert.FileExists(t, filepath.Join(dir, "ledger.json"))
	assert.NoFileExists(t, filepath.Join(dir, "ledger.json.tmp"))

	data, err := store.Get(ctx, storage.KindLedger)
	require.NoError(t, err)
	assert.JSONEq(t, `{"archives":[]}`, string(data))

	require.NoError(t, store.Remove(ctx, storage.KindLedger))
	assert.ErrorIs(t, store.Remove(ctx, storage.KindLedger), storage.ErrNotFound)
}

func TestGatewayOverFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := filestore.New(dir, storage.CBOR{}.Name())
	require.NoError(t, err)
	gw := storage.NewGateway(store, storage.CBOR{})

	require.NoError(t, gw.Save(ctx, &storage.SettingsRecord{Ticket: 12, Epoch: 3, CurrentDay: 2}))

	reopened, err := filestore.New(dir, "cbor")
	require.NoError(t, err)
	var settings storage.SettingsRecord
	require.NoError(t, storage.NewGateway(reopened, storage.CBOR{}).Load(ctx, &settings))
	assert.Equal(t, storage.SettingsRecord{Ticket: 12, Epoch: 3, CurrentDay: 2}, settings)
}

func TestLoadCorruptFileFails(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := filestore.New(dir, "json")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(storage.KindCatalog), []byte("{not json"), 0o644))

	var items storage.CatalogRecord
	assert.Error(t, storage.NewGateway(store, nil).Load(ctx, &items))
}
