package meta

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopier_CopyAllRoundTrip(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	copier := NewCopier(store, nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "color", "blue"))
	require.NoError(t, store.Set(ctx, 1, "size", "large"))

	n, err := copier.CopyAll(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"blue"}, all["color"])
	assert.Equal(t, []interface{}{"large"}, all["size"])
}

func TestCopier_SingleValueOverwritesDest(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	copier := NewCopier(store, nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "color", "blue"))
	require.NoError(t, store.Set(ctx, 2, "color", "red"))

	_, err := copier.CopyAll(ctx, 1, 2, nil)
	require.NoError(t, err)

	all, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"blue"}, all["color"])
}

func TestCopier_MultiValueAppendsToDest(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	copier := NewCopier(store, nil)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, 1, "tag", "a"))
	require.NoError(t, store.Add(ctx, 1, "tag", "b"))
	require.NoError(t, store.Add(ctx, 2, "tag", "existing"))

	n, err := copier.CopyAll(ctx, 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"existing", "a", "b"}, all["tag"])
}

func TestCopier_ExcludedKeysNotCopied(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	copier := NewCopier(store, nil)
	excl := NewExclusions()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, KeyShadowID, "99"))
	require.NoError(t, store.Set(ctx, 1, KeyEditLock, "1700000000:3"))
	require.NoError(t, store.Set(ctx, 1, "color", "blue"))
	require.NoError(t, store.Set(ctx, 2, KeyEditLock, "1700000001:4"))

	n, err := copier.CopyAll(ctx, 1, 2, excl.For(ContextDuplicate))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"blue"}, all["color"])
	assert.NotContains(t, all, KeyShadowID)

	// Dest's own lock entry is untouched.
	assert.Equal(t, []interface{}{"1700000001:4"}, all[KeyEditLock])
}

func TestCopier_DeleteAllRespectsExclusions(t *testing.T) {
	store := NewStore(setupTestDB(t), nil)
	copier := NewCopier(store, nil)
	excl := NewExclusions()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 1, "color", "blue"))
	require.NoError(t, store.Set(ctx, 1, "size", "large"))
	require.NoError(t, store.Set(ctx, 1, KeyShadowOf, "10"))

	n, err := copier.DeleteAll(ctx, 1, excl.For(ContextRestore))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.GetAll(ctx, 1)
	require.NoError(t, err)
	assert.NotContains(t, all, "color")
	assert.NotContains(t, all, "size")
	assert.Contains(t, all, KeyShadowOf)
}

func TestExclusions_FilterExtendsSet(t *testing.T) {
	excl := NewExclusions()
	excl.Register(KeyFilterFunc(func(ctx CopyContext, keys []string) []string {
		if ctx == ContextRestore {
			return append(keys, "_plugin_private")
		}
		return keys
	}))

	restore := excl.For(ContextRestore)
	assert.True(t, restore.Contains("_plugin_private"))
	assert.True(t, restore.Contains(KeyEditLock))

	capture := excl.For(ContextCapture)
	assert.False(t, capture.Contains("_plugin_private"))
}
