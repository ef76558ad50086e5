package rag

import (
	"context"
	"fmt"
	"maps"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// LangChainDocumentLoader adapts langchaingo's documentloaders.Loader to our DocumentLoader interface
type LangChainDocumentLoader struct {
	loader documentloaders.Loader
}

// NewLangChainDocumentLoader creates a new adapter for langchaingo document loaders
func NewLangChainDocumentLoader(loader documentloaders.Loader) *LangChainDocumentLoader {
	return &LangChainDocumentLoader{
		loader: loader,
	}
}

// Load loads documents using the underlying langchaingo loader
func (l *LangChainDocumentLoader) Load(ctx context.Context) ([]Document, error) {
	schemaDocs, err := l.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	return FromSchemaDocuments(schemaDocs), nil
}

// FromSchemaDocuments converts langchaingo schema.Document values to our Document type
func FromSchemaDocuments(schemaDocs []schema.Document) []Document {
	docs := make([]Document, len(schemaDocs))
	for i, schemaDoc := range schemaDocs {
		docs[i] = Document{
			Content:  schemaDoc.PageContent,
			Metadata: maps.Clone(schemaDoc.Metadata),
		}
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any)
		}

		if source, ok := schemaDoc.Metadata["source"]; ok {
			docs[i].ID = fmt.Sprintf("%v", source)
		} else {
			docs[i].ID = fmt.Sprintf("doc_%d", i)
		}
	}
	return docs
}

// ToSchemaDocuments converts ranked chunks to langchaingo schema.Document values.
// The chunk's collection, source and position are added to the metadata.
func ToSchemaDocuments(results []SearchResult) []schema.Document {
	docs := make([]schema.Document, len(results))
	for i, r := range results {
		metadata := make(map[string]any, len(r.Chunk.Metadata)+4)
		maps.Copy(metadata, r.Chunk.Metadata)
		metadata["id"] = r.Chunk.ID
		metadata["collection"] = r.Chunk.Collection
		metadata["source"] = r.Chunk.Source
		metadata["chunk_index"] = r.Chunk.Index

		docs[i] = schema.Document{
			PageContent: r.Chunk.Content,
			Metadata:    metadata,
			Score:       float32(r.Score),
		}
	}
	return docs
}

// LangChainTextSplitter adapts langchaingo's textsplitter.TextSplitter to our TextSplitter interface
type LangChainTextSplitter struct {
	splitter textsplitter.TextSplitter
}

var _ TextSplitter = (*LangChainTextSplitter)(nil)

// NewLangChainTextSplitter creates a new adapter for langchaingo text splitters
func NewLangChainTextSplitter(splitter textsplitter.TextSplitter) *LangChainTextSplitter {
	return &LangChainTextSplitter{
		splitter: splitter,
	}
}

// SplitText splits text using the underlying langchaingo splitter
func (l *LangChainTextSplitter) SplitText(text string) ([]string, error) {
	return l.splitter.SplitText(text)
}

// LangChainEmbedder adapts langchaingo's embeddings.Embedder to our Embedder interface
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

var _ Embedder = (*LangChainEmbedder)(nil)

// NewLangChainEmbedder creates a new adapter for langchaingo embedders
func NewLangChainEmbedder(embedder embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{
		embedder: embedder,
	}
}

// EmbedQuery embeds a single query using the underlying langchaingo embedder
func (l *LangChainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return l.embedder.EmbedQuery(ctx, text)
}

// EmbedDocuments embeds multiple documents using the underlying langchaingo embedder
func (l *LangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return l.embedder.EmbedDocuments(ctx, texts)
}
