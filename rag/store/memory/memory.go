// Package memory provides a process-local rag.CollectionStore.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/smallnest/agentapis/rag"
)

type collection struct {
	info   rag.CollectionInfo
	chunks []rag.Chunk
}

// Store is an in-memory rag.CollectionStore. Data lives until the process exits.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

var _ rag.CollectionStore = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// EnsureCollection returns the named collection, creating it if needed.
func (s *Store) EnsureCollection(_ context.Context, name, embeddingModel string) (rag.CollectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{info: rag.CollectionInfo{
			Name:           name,
			EmbeddingModel: embeddingModel,
			CreatedAt:      time.Now().UTC(),
		}}
		s.collections[name] = c
	}
	return c.info, nil
}

// Collection returns the named collection or rag.ErrCollectionNotFound.
func (s *Store) Collection(_ context.Context, name string) (rag.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return rag.CollectionInfo{}, fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, name)
	}
	return c.info, nil
}

// AddChunks appends copies of chunks. Nothing is stored if any collection is unknown.
func (s *Store) AddChunks(_ context.Context, chunks []rag.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, ok := s.collections[c.Collection]; !ok {
			return fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, c.Collection)
		}
	}
	for _, c := range chunks {
		c.Embedding = slices.Clone(c.Embedding)
		c.Metadata = maps.Clone(c.Metadata)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		col := s.collections[c.Collection]
		col.chunks = append(col.chunks, c)
	}
	return nil
}

// Search returns the k chunks closest to query.
func (s *Store) Search(_ context.Context, name string, query []float32, k int) ([]rag.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, name)
	}
	return rag.RankChunks(query, c.chunks, k), nil
}

// Count returns the number of chunks in the collection.
func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", rag.ErrCollectionNotFound, name)
	}
	return len(c.chunks), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
