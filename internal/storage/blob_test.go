package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlobLogger() *common.Logger {
	return common.NewLogger("error")
}

func TestFileBlobStore_PutGet(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewFileBlobStore(newTestBlobLogger(), common.FileBlobConfig{BasePath: tmpDir})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	data := []byte{0x89, 'P', 'N', 'G'}

	require.NoError(t, store.Put(ctx, "characters/42-avatar.png", data, models.ObjectMeta{ContentType: ContentTypePNG}))

	got, err := store.Get(ctx, "characters/42-avatar.png")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.FileExists(t, filepath.Join(tmpDir, "characters", "42-avatar.png"))
}

func TestFileBlobStore_ExistsAndDelete(t *testing.T) {
	store, err := NewFileBlobStore(newTestBlobLogger(), common.FileBlobConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := store.Exists(ctx, "items/19019.jpg")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, "items/19019.jpg", []byte("jpg"), models.ObjectMeta{}))
	exists, err = store.Exists(ctx, "items/19019.jpg")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "items/19019.jpg"))
	require.NoError(t, store.Delete(ctx, "items/19019.jpg"), "deleting a missing blob is not an error")

	_, err = store.Get(ctx, "items/19019.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBlobStore_KeysCannotEscapeBase(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewFileBlobStore(newTestBlobLogger(), common.FileBlobConfig{BasePath: tmpDir})
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "../../etc/evil.png", []byte("x"), models.ObjectMeta{}))
	assert.FileExists(t, filepath.Join(tmpDir, "etc", "evil.png"))
}

func TestFileBlobStore_RequiresBasePath(t *testing.T) {
	_, err := NewFileBlobStore(newTestBlobLogger(), common.FileBlobConfig{})
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, ContentTypePNG, ContentTypeFor("characters/1-main-raw.png"))
	assert.Equal(t, ContentTypeJPEG, ContentTypeFor("items/1.jpg"))
	assert.Equal(t, ContentTypeJPEG, ContentTypeFor("items/1.JPEG"))
	assert.Equal(t, ContentTypeBinary, ContentTypeFor("items/1.webp"))
	assert.Equal(t, ContentTypeBinary, ContentTypeFor("items/1"))
}
