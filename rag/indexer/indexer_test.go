package indexer

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallnest/agentapis/rag"
	"github.com/smallnest/agentapis/rag/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagEmbedder embeds text as a letter-frequency vector.
type bagEmbedder struct {
	calls int
	err   error
}

func (e *bagEmbedder) embed(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e *bagEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *bagEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.embed(text), nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "info.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestSingleSentence(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "The sky is blue.")
	location := filepath.Join(t.TempDir(), "vector_store")

	r, err := Ingest(ctx, IngestOptions{
		FilePath:        path,
		StorageLocation: location,
		Embedder:        &bagEmbedder{},
	})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, DefaultCollection, r.Collection())
	count, err := r.Store().Count(ctx, DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	chunks, err := r.Retrieve(ctx, "sky color")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "The sky is blue.", chunks[0].Content)
	assert.Equal(t, path, chunks[0].Source)
}

func TestIngestThenOpenRetriever(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("Retrieval augmented generation grounds answers in documents. ", 40)
	path := writeFile(t, text)
	location := filepath.Join(t.TempDir(), "vector_store")
	embedder := &bagEmbedder{}

	r, err := Ingest(ctx, IngestOptions{
		FilePath:        path,
		Collection:      "notes",
		StorageLocation: location,
		Embedder:        embedder,
	})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, 1, embedder.calls, "chunks are embedded in one batch")

	opened, err := OpenRetriever(ctx, OpenOptions{
		Collection:      "notes",
		StorageLocation: location,
		Embedder:        embedder,
	})
	require.NoError(t, err)
	defer opened.Close()

	count, err := opened.Store().Count(ctx, "notes")
	require.NoError(t, err)
	// ceil((L - overlap) / (size - overlap)) with a little slack for word boundaries.
	expected := int(math.Ceil(float64(len(text)-50) / float64(500-50)))
	assert.InDelta(t, expected, count, 1)

	chunks, err := opened.Retrieve(ctx, "Retrieval augmented generation grounds answers in documents.")
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Content)), 500)
	}
}

func TestIngestAppends(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	opener := func(context.Context, string, bool) (rag.CollectionStore, error) { return store, nil }
	path := writeFile(t, "The sky is blue.")

	for range 2 {
		r, err := Ingest(ctx, IngestOptions{FilePath: path, Embedder: &bagEmbedder{}, Store: opener})
		require.NoError(t, err)
		require.NotNil(t, r)
	}

	count, err := store.Count(ctx, DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("model not loaded")

	tests := []struct {
		name    string
		content string
		opts    IngestOptions
		wantErr error
	}{
		{
			name:    "overlap not smaller than size",
			content: "The sky is blue.",
			opts:    IngestOptions{ChunkSize: 50, ChunkOverlap: 50, Embedder: &bagEmbedder{}},
			wantErr: rag.ErrInvalidChunking,
		},
		{
			name:    "negative overlap",
			content: "The sky is blue.",
			opts:    IngestOptions{ChunkSize: 50, ChunkOverlap: -1, Embedder: &bagEmbedder{}},
			wantErr: rag.ErrInvalidChunking,
		},
		{
			name:    "embedding backend down",
			content: "The sky is blue.",
			opts:    IngestOptions{Embedder: &bagEmbedder{err: boom}},
			wantErr: boom,
		},
		{
			name:    "whitespace only",
			content: " \n\n\t ",
			opts:    IngestOptions{Embedder: &bagEmbedder{}},
			wantErr: rag.ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.FilePath = writeFile(t, tt.content)
			tt.opts.StorageLocation = filepath.Join(t.TempDir(), "vector_store")

			r, err := Ingest(ctx, tt.opts)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIngestEmbeddingErrorIsTagged(t *testing.T) {
	r, err := Ingest(context.Background(), IngestOptions{
		FilePath:        writeFile(t, "The sky is blue."),
		StorageLocation: filepath.Join(t.TempDir(), "vector_store"),
		Embedder:        &bagEmbedder{err: errors.New("timeout")},
	})
	assert.Nil(t, r)
	assert.ErrorIs(t, err, rag.ErrEmbedding)
}

func TestIngestMissingFile(t *testing.T) {
	location := filepath.Join(t.TempDir(), "vector_store")
	_, err := Ingest(context.Background(), IngestOptions{
		FilePath:        filepath.Join(t.TempDir(), "missing.txt"),
		StorageLocation: location,
		Embedder:        &bagEmbedder{},
	})
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, statErr := os.Stat(location)
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "nothing is created when loading fails")
}

func TestOpenRetrieverNotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("missing storage location", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "nowhere")
		r, err := OpenRetriever(ctx, OpenOptions{StorageLocation: location, Embedder: &bagEmbedder{}})
		assert.Nil(t, r)
		assert.ErrorIs(t, err, rag.ErrCollectionNotFound)

		_, statErr := os.Stat(location)
		assert.ErrorIs(t, statErr, fs.ErrNotExist)
	})

	t.Run("missing collection", func(t *testing.T) {
		location := filepath.Join(t.TempDir(), "vector_store")
		r, err := Ingest(ctx, IngestOptions{
			FilePath:        writeFile(t, "The sky is blue."),
			StorageLocation: location,
			Embedder:        &bagEmbedder{},
		})
		require.NoError(t, err)
		require.NoError(t, r.Close())

		r, err = OpenRetriever(ctx, OpenOptions{Collection: "other", StorageLocation: location, Embedder: &bagEmbedder{}})
		assert.Nil(t, r)
		assert.ErrorIs(t, err, rag.ErrCollectionNotFound)
	})
}

func TestOpenRetrieverEmptyCollection(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.EnsureCollection(ctx, "empty", DefaultEmbeddingModel)
	require.NoError(t, err)
	opener := func(context.Context, string, bool) (rag.CollectionStore, error) { return store, nil }

	r, err := OpenRetriever(ctx, OpenOptions{Collection: "empty", Embedder: &bagEmbedder{}, Store: opener})
	require.NoError(t, err)

	chunks, err := r.Retrieve(ctx, "anything")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, isPostgres("postgres://user@localhost/db"))
	assert.True(t, isPostgres("postgresql://localhost/db"))
	assert.False(t, isPostgres("./vector_store"))
}
