package meta

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE record_meta (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL
	)`)
	require.NoError(t, err)
	return db
}

func TestStore_SetGet(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "color", "blue"))

	v, ok, err := store.Get(ctx, 1, "color")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "blue", v)
}

func TestStore_GetMissingKey(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)

	v, ok, err := store.Get(context.Background(), 1, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_SetOverwritesAllValues(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, 1, "tag", "a"))
	require.NoError(t, store.Add(ctx, 1, "tag", "b"))
	require.NoError(t, store.Set(ctx, 1, "tag", "c"))

	all, err := store.GetAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"c"}, all["tag"])
}

func TestStore_AddIsAdditive(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, 1, "tag", "a"))
	require.NoError(t, store.Add(ctx, 1, "tag", "b"))

	all, err := store.GetAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, all["tag"])
}

func TestStore_ValueTypesRoundTrip(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "bool", true))
	require.NoError(t, store.Set(ctx, 1, "num", 42.5))
	require.NoError(t, store.Set(ctx, 1, "list", []interface{}{"x", "y"}))

	v, _, err := store.Get(ctx, 1, "bool")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, _, err = store.Get(ctx, 1, "num")
	require.NoError(t, err)
	assert.Equal(t, 42.5, v)

	v, _, err = store.Get(ctx, 1, "list")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", "y"}, v)
}

func TestStore_GetInt64Pointer(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 5, KeyShadowOf, "10"))

	id, ok, err := store.GetInt64(ctx, 5, KeyShadowOf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10), id)

	// Non-numeric values are treated as absent.
	require.NoError(t, store.Set(ctx, 5, KeyShadowOf, "garbage"))
	_, ok, err = store.GetInt64(ctx, 5, KeyShadowOf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteAndExists(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "color", "blue"))

	ok, err := store.Exists(ctx, 1, "color")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, 1, "color"))

	ok, err = store.Exists(ctx, 1, "color")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is a no-op.
	require.NoError(t, store.Delete(ctx, 1, "color"))
}

func TestStore_DeleteAllForRecord(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "a", "1"))
	require.NoError(t, store.Set(ctx, 1, "b", "2"))
	require.NoError(t, store.Set(ctx, 2, "a", "other"))

	require.NoError(t, store.DeleteAllForRecord(ctx, 1))

	all, err := store.GetAll(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Other records are untouched.
	v, ok, err := store.Get(ctx, 2, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "other", v)
}
