package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound is returned when a collection or its storage location does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrEmbedding wraps failures reported by the embedding backend.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInvalidChunking is returned for chunk settings that cannot produce bounded chunks.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrEmptyDocument is returned when a source yields no text to index.
	ErrEmptyDocument = errors.New("document has no content")
)

// ValidateChunking checks that size is positive and 0 <= overlap < size.
func ValidateChunking(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunking, size)
	case overlap < 0:
		return fmt.Errorf("%w: chunk overlap %d must not be negative", ErrInvalidChunking, overlap)
	case overlap >= size:
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", ErrInvalidChunking, overlap, size)
	}
	return nil
}
