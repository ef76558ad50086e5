package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextLoader(t *testing.T) {
	ctx := context.Background()
	content := "Line 1\nLine 2\n\nLine 3"
	tmpFile := filepath.Join(t.TempDir(), "info.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o644))

	t.Run("Basic Load", func(t *testing.T) {
		docs, err := NewTextLoader(tmpFile).Load(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, content, docs[0].Content)
		assert.Equal(t, tmpFile, docs[0].Metadata["source"])
		assert.Equal(t, "text", docs[0].Metadata["type"])
		assert.Equal(t, "text_"+tmpFile, docs[0].ID)
	})

	t.Run("Load with Metadata", func(t *testing.T) {
		docs, err := NewTextLoader(tmpFile, WithMetadata(map[string]any{"author": "test"})).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "test", docs[0].Metadata["author"])
	})
}

func TestTextLoaderMissingFile(t *testing.T) {
	_, err := NewTextLoader(filepath.Join(t.TempDir(), "missing.txt")).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTextLoaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTextLoader("whatever.txt").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
