package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Supports(t *testing.T) {
	src := NewFileSource()

	assert.True(t, src.Supports("/models/crop.json"))
	assert.True(t, src.Supports("models/crop.json"))
	assert.True(t, src.Supports("file:///models/crop.json"))
	assert.False(t, src.Supports(""))
	assert.False(t, src.Supports("https://example.com/crop.json"))
	assert.False(t, src.Supports("configmap://ns/name/key"))
}

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crop.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1}`), 0o644))

	for _, ref := range []string{path, "file://" + path} {
		blob, err := NewFileSource().Fetch(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, ref, blob.Ref)
		assert.Equal(t, `{"version": 1}`, string(blob.Data))
		assert.False(t, blob.FetchedAt.IsZero())
	}
}

func TestFileSource_FetchMissing(t *testing.T) {
	_, err := NewFileSource().Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSource_FetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource().Fetch(ctx, "/models/crop.json")
	assert.ErrorIs(t, err, context.Canceled)
}
