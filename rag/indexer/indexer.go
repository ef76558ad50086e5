// Package indexer ingests text files into collections and opens retrievers over them.
package indexer

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/agentapis/log"
	"github.com/smallnest/agentapis/rag"
	"github.com/smallnest/agentapis/rag/loader"
	"github.com/smallnest/agentapis/rag/retriever"
	"github.com/smallnest/agentapis/rag/splitter"
	"github.com/smallnest/agentapis/rag/store/postgres"
	"github.com/smallnest/agentapis/rag/store/sqlite"
)

// Defaults for ingestion.
const (
	DefaultFilePath        = "./documents/info.txt"
	DefaultCollection      = "info"
	DefaultStorageLocation = "./vector_store"
	DefaultEmbeddingModel  = "nomic-embed-text:latest"
)

// StoreOpener opens the collection store at location. When create is false it must
// not create anything and reports a missing location as rag.ErrCollectionNotFound.
type StoreOpener func(ctx context.Context, location string, create bool) (rag.CollectionStore, error)

// OpenStore is the default StoreOpener. Locations starting with postgres:// or
// postgresql:// are PostgreSQL DSNs, everything else is a SQLite directory.
func OpenStore(ctx context.Context, location string, create bool) (rag.CollectionStore, error) {
	if isPostgres(location) {
		open := postgres.Open
		if create {
			open = postgres.Create
		}
		store, err := open(ctx, location)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	open := sqlite.Open
	if create {
		open = sqlite.Create
	}
	store, err := open(ctx, location)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func isPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

// IngestOptions configures Ingest. Zero values fall back to the package defaults.
type IngestOptions struct {
	FilePath        string
	Collection      string
	StorageLocation string
	EmbeddingModel  string
	ChunkSize       int
	ChunkOverlap    int

	// Embedder is required.
	Embedder rag.Embedder
	// Store defaults to OpenStore.
	Store StoreOpener
	// Retrieval configures the returned retriever.
	Retrieval rag.RetrievalConfig
	Logger    log.Logger
}

func (o *IngestOptions) setDefaults() {
	if o.FilePath == "" {
		o.FilePath = DefaultFilePath
	}
	if o.Collection == "" {
		o.Collection = DefaultCollection
	}
	if o.StorageLocation == "" {
		o.StorageLocation = DefaultStorageLocation
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = DefaultEmbeddingModel
	}
	if o.ChunkSize == 0 && o.ChunkOverlap == 0 {
		o.ChunkSize = splitter.DefaultChunkSize
		o.ChunkOverlap = splitter.DefaultChunkOverlap
	}
	if o.Store == nil {
		o.Store = OpenStore
	}
	o.Logger = log.OrNoop(o.Logger)
}

// Ingest loads the file, splits it into overlapping chunks, embeds every chunk in one
// batch and appends them to the collection, creating it when needed. It returns a
// retriever bound to the collection. The caller owns the retriever and must Close it.
func Ingest(ctx context.Context, opts IngestOptions) (*retriever.VectorRetriever, error) {
	opts.setDefaults()
	logger := opts.Logger

	if err := rag.ValidateChunking(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", rag.ErrEmbedding)
	}

	docs, err := loader.NewTextLoader(opts.FilePath).Load(ctx)
	if err != nil {
		return nil, err
	}

	split, err := splitter.NewRecursiveCharacterTextSplitter(
		splitter.WithChunkSize(opts.ChunkSize),
		splitter.WithChunkOverlap(opts.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	var (
		texts   []string
		sources []rag.Document
	)
	for _, doc := range docs {
		parts, err := split.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", opts.FilePath, err)
		}
		for _, part := range parts {
			texts = append(texts, part)
			sources = append(sources, doc)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %s", rag.ErrEmptyDocument, opts.FilePath)
	}
	logger.Info("split %s into %d chunks (size %d, overlap %d)", opts.FilePath, len(texts), opts.ChunkSize, opts.ChunkOverlap)

	vectors, err := opts.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", rag.ErrEmbedding, len(vectors), len(texts))
	}

	store, err := opts.Store(ctx, opts.StorageLocation, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage location %s: %w", opts.StorageLocation, err)
	}

	info, err := store.EnsureCollection(ctx, opts.Collection, opts.EmbeddingModel)
	if err != nil {
		store.Close()
		return nil, err
	}
	if info.EmbeddingModel != opts.EmbeddingModel {
		logger.Warn("collection %s was created with embedding model %s, ingesting with %s",
			opts.Collection, info.EmbeddingModel, opts.EmbeddingModel)
	}

	now := time.Now().UTC()
	chunks := make([]rag.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = rag.Chunk{
			ID:         uuid.NewString(),
			Collection: opts.Collection,
			Source:     opts.FilePath,
			Index:      i,
			Content:    text,
			Embedding:  vectors[i],
			Metadata:   maps.Clone(sources[i].Metadata),
			CreatedAt:  now,
		}
	}

	if err := store.AddChunks(ctx, chunks); err != nil {
		store.Close()
		return nil, err
	}
	logger.Info("ingested %d chunks into collection %s at %s", len(chunks), opts.Collection, opts.StorageLocation)

	return retriever.NewVectorRetriever(store, opts.Embedder, opts.Collection,
		retriever.WithConfig(opts.Retrieval),
		retriever.WithLogger(logger),
	), nil
}

// OpenOptions configures OpenRetriever.
type OpenOptions struct {
	Collection      string
	StorageLocation string
	EmbeddingModel  string

	// Embedder is required; it embeds queries.
	Embedder  rag.Embedder
	Store     StoreOpener
	Retrieval rag.RetrievalConfig
	Logger    log.Logger
}

// OpenRetriever opens an existing collection without creating anything. A missing
// storage location or collection yields rag.ErrCollectionNotFound.
func OpenRetriever(ctx context.Context, opts OpenOptions) (*retriever.VectorRetriever, error) {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.StorageLocation == "" {
		opts.StorageLocation = DefaultStorageLocation
	}
	if opts.Store == nil {
		opts.Store = OpenStore
	}
	logger := log.OrNoop(opts.Logger)

	if opts.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", rag.ErrEmbedding)
	}

	store, err := opts.Store(ctx, opts.StorageLocation, false)
	if err != nil {
		return nil, err
	}

	info, err := store.Collection(ctx, opts.Collection)
	if err != nil {
		store.Close()
		return nil, err
	}
	if opts.EmbeddingModel != "" && info.EmbeddingModel != opts.EmbeddingModel {
		logger.Warn("collection %s was created with embedding model %s, querying with %s",
			opts.Collection, info.EmbeddingModel, opts.EmbeddingModel)
	}

	return retriever.NewVectorRetriever(store, opts.Embedder, opts.Collection,
		retriever.WithConfig(opts.Retrieval),
		retriever.WithLogger(logger),
	), nil
}
