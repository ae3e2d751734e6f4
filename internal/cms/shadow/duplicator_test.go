package shadow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redline-cms/redline/internal/cms/meta"
	"github.com/redline-cms/redline/internal/cms/record"
)

func TestDuplicator_Duplicate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	srcID := f.createPage(t, "home", "v1")
	require.NoError(t, f.meta.Set(ctx, srcID, "color", "blue"))
	require.NoError(t, f.meta.Set(ctx, srcID, meta.KeyShadowID, "5"))

	empty := ""
	draft := record.StatusDraft
	dup := f.svc.dup

	newID, err := dup.Duplicate(ctx, srcID, Overrides{Slug: &empty, Status: &draft})
	require.NoError(t, err)
	require.NotEqual(t, srcID, newID)

	got, err := f.records.Get(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "home", got.Title)
	assert.Equal(t, "v1", got.Body)
	assert.Equal(t, "", got.Slug)
	assert.Equal(t, record.StatusDraft, got.Status)
	assert.NotEqual(t, "", got.GUID)

	// Plain metadata travels; pointer metadata does not.
	v, ok, err := f.meta.Get(ctx, newID, "color")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "blue", v)

	ok, err = f.meta.Exists(ctx, newID, meta.KeyShadowID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDuplicator_DuplicateMissingSource(t *testing.T) {
	f := setup(t)

	_, err := f.svc.dup.Duplicate(context.Background(), 12345, Overrides{})
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestDuplicator_OverwriteKeepsIdentity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	srcID := f.createPage(t, "draft-copy", "new body")
	dstID := f.createPage(t, "live", "old body")
	require.NoError(t, f.meta.Set(ctx, srcID, "color", "green"))
	require.NoError(t, f.meta.Set(ctx, dstID, "color", "blue"))
	require.NoError(t, f.meta.Set(ctx, dstID, "stale", "1"))

	require.NoError(t, f.svc.dup.Overwrite(ctx, srcID, dstID))

	dst, err := f.records.Get(ctx, dstID)
	require.NoError(t, err)
	assert.Equal(t, "draft-copy", dst.Title)
	assert.Equal(t, "new body", dst.Body)
	assert.Equal(t, "slug-live", dst.Slug)
	assert.Equal(t, record.StatusPublish, dst.Status)

	v, _, err := f.meta.Get(ctx, dstID, "color")
	require.NoError(t, err)
	assert.Equal(t, "green", v)

	ok, err := f.meta.Exists(ctx, dstID, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
}
