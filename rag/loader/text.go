package loader

import (
	"context"
	"fmt"
	"maps"
	"os"

	"github.com/smallnest/agentapis/rag"
	"github.com/tmc/langchaingo/documentloaders"
)

// TextLoader loads a whole text file as one document
type TextLoader struct {
	filePath string
	metadata map[string]any
}

var _ rag.DocumentLoader = (*TextLoader)(nil)

// TextLoaderOption configures the TextLoader
type TextLoaderOption func(*TextLoader)

// WithMetadata sets additional metadata for loaded documents
func WithMetadata(metadata map[string]any) TextLoaderOption {
	return func(l *TextLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...TextLoaderOption) *TextLoader {
	l := &TextLoader{
		filePath: filePath,
		metadata: map[string]any{
			"source": filePath,
			"type":   "text",
		},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the file. A missing file yields an error satisfying errors.Is(err, fs.ErrNotExist).
func (l *TextLoader) Load(ctx context.Context) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", l.filePath, err)
	}
	defer file.Close()

	schemaDocs, err := documentloaders.NewText(file).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", l.filePath, err)
	}

	docs := rag.FromSchemaDocuments(schemaDocs)
	for i := range docs {
		maps.Copy(docs[i].Metadata, l.metadata)
		docs[i].ID = fmt.Sprintf("text_%s", l.filePath)
	}
	return docs, nil
}
