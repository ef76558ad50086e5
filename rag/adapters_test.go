package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

type mockLCEmbedder struct {
	err error
}

func (m *mockLCEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	res := make([][]float32, len(texts))
	for i := range texts {
		res[i] = []float32{0.1, 0.2}
	}
	return res, nil
}

func (m *mockLCEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2}, nil
}

type mockLCLoader struct{}

func (m *mockLCLoader) Load(ctx context.Context) ([]schema.Document, error) {
	return []schema.Document{{PageContent: "lc content", Metadata: map[string]any{"source": "lc"}}}, nil
}

func (m *mockLCLoader) LoadAndSplit(ctx context.Context, s textsplitter.TextSplitter) ([]schema.Document, error) {
	return m.Load(ctx)
}

func TestLangChainAdapters(t *testing.T) {
	ctx := context.Background()

	t.Run("LangChainDocumentLoader", func(t *testing.T) {
		adapter := NewLangChainDocumentLoader(&mockLCLoader{})
		docs, err := adapter.Load(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "lc content", docs[0].Content)
		assert.Equal(t, "lc", docs[0].ID)
	})

	t.Run("LangChainEmbedder", func(t *testing.T) {
		adapter := NewLangChainEmbedder(&mockLCEmbedder{})

		emb, err := adapter.EmbedQuery(ctx, "test")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2}, emb)

		embs, err := adapter.EmbedDocuments(ctx, []string{"a", "b"})
		require.NoError(t, err)
		assert.Len(t, embs, 2)
	})

	t.Run("LangChainEmbedderError", func(t *testing.T) {
		boom := errors.New("backend down")
		adapter := NewLangChainEmbedder(&mockLCEmbedder{err: boom})

		_, err := adapter.EmbedDocuments(ctx, []string{"a"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("LangChainTextSplitter", func(t *testing.T) {
		lc := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(10),
			textsplitter.WithChunkOverlap(0),
		)
		adapter := NewLangChainTextSplitter(lc)

		chunks, err := adapter.SplitText("alpha beta gamma delta")
		require.NoError(t, err)
		assert.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c), 10)
		}
	})
}

func TestToSchemaDocuments(t *testing.T) {
	docs := ToSchemaDocuments([]SearchResult{{
		Chunk: Chunk{
			ID:         "c1",
			Collection: "info",
			Source:     "info.txt",
			Index:      2,
			Content:    "The sky is blue.",
			Metadata:   map[string]any{"type": "text"},
		},
		Score: 0.5,
	}})

	require.Len(t, docs, 1)
	assert.Equal(t, "The sky is blue.", docs[0].PageContent)
	assert.InDelta(t, 0.5, docs[0].Score, 1e-6)
	assert.Equal(t, "info", docs[0].Metadata["collection"])
	assert.Equal(t, 2, docs[0].Metadata["chunk_index"])
	assert.Equal(t, "text", docs[0].Metadata["type"])
}

func TestValidateChunking(t *testing.T) {
	assert.NoError(t, ValidateChunking(500, 50))
	assert.NoError(t, ValidateChunking(1, 0))

	for _, tc := range [][2]int{{0, 0}, {-1, 0}, {10, -1}, {10, 10}, {10, 11}} {
		assert.ErrorIs(t, ValidateChunking(tc[0], tc[1]), ErrInvalidChunking, "%v", tc)
	}
}

func TestRankChunks(t *testing.T) {
	chunks := []Chunk{
		{ID: "x", Embedding: []float32{1, 0}},
		{ID: "y", Embedding: []float32{0, 1}},
		{ID: "xy", Embedding: []float32{1, 1}},
		{ID: "bad", Embedding: []float32{1}},
	}

	results := RankChunks([]float32{1, 0}, chunks, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "x", results[0].Chunk.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "xy", results[1].Chunk.ID)

	all := RankChunks([]float32{1, 0}, chunks, 0)
	assert.Len(t, all, DefaultK)

	filtered := FilterByScore(RankChunks([]float32{1, 0}, chunks, 10), 0.5)
	assert.Len(t, filtered, 2)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
}
