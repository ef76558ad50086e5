package rag

import (
	"context"
	"time"
)

// DefaultK is the number of chunks a retriever returns when no K is configured.
const DefaultK = 4

// Document is a loaded source text.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Chunk is a contiguous span of a source document together with its embedding.
type Chunk struct {
	ID         string
	Collection string
	Source     string
	Index      int
	Content    string
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
}

// SearchResult is a chunk ranked against a query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name           string
	EmbeddingModel string
	CreatedAt      time.Time
}

// RetrievalConfig tunes a retrieval call.
type RetrievalConfig struct {
	// K is the number of results to return. Zero means DefaultK.
	K int
	// ScoreThreshold drops results scoring below it. Zero keeps everything.
	ScoreThreshold float64
	// SearchType is SearchSimilarity (default) or SearchMMR.
	SearchType string
}

// Search types understood by retrievers.
const (
	SearchSimilarity = "similarity"
	SearchMMR        = "mmr"
)

// DocumentLoader loads documents from a source.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}

// TextSplitter splits text into chunks.
type TextSplitter interface {
	SplitText(text string) ([]string, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CollectionStore persists named, append-only collections of chunks.
type CollectionStore interface {
	// EnsureCollection returns the named collection, creating it if needed.
	EnsureCollection(ctx context.Context, name, embeddingModel string) (CollectionInfo, error)
	// Collection returns the named collection or ErrCollectionNotFound.
	Collection(ctx context.Context, name string) (CollectionInfo, error)
	// AddChunks appends chunks to their collections.
	AddChunks(ctx context.Context, chunks []Chunk) error
	// Search returns up to k chunks of collection ordered by descending similarity to query.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)
	// Count returns the number of chunks stored in collection.
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}

// Retriever answers queries with ranked chunks.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Chunk, error)
	RetrieveWithConfig(ctx context.Context, query string, config *RetrievalConfig) ([]SearchResult, error)
}
