package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/smallnest/agentapis/rag"
)

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 50
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveCharacterTextSplitter recursively splits text while keeping related pieces together.
// Each separator is tried in turn; pieces still longer than the chunk size are split again
// with the next separator, and short pieces are merged back into chunks that share up to
// chunkOverlap characters with their predecessor.
type RecursiveCharacterTextSplitter struct {
	separators   []string
	chunkSize    int
	chunkOverlap int
	lengthFunc   func(string) int
}

var _ rag.TextSplitter = (*RecursiveCharacterTextSplitter)(nil)

// RecursiveCharacterTextSplitterOption configures the RecursiveCharacterTextSplitter
type RecursiveCharacterTextSplitterOption func(*RecursiveCharacterTextSplitter)

// WithChunkSize sets the chunk size for the splitter
func WithChunkSize(size int) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the chunk overlap for the splitter
func WithChunkOverlap(overlap int) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators sets the custom separators for the splitter
func WithSeparators(separators []string) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.separators = separators
	}
}

// WithLengthFunction sets a custom length function
func WithLengthFunction(fn func(string) int) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.lengthFunc = fn
	}
}

// NewRecursiveCharacterTextSplitter creates a new RecursiveCharacterTextSplitter.
// It fails with rag.ErrInvalidChunking unless 0 <= overlap < size.
func NewRecursiveCharacterTextSplitter(opts ...RecursiveCharacterTextSplitterOption) (*RecursiveCharacterTextSplitter, error) {
	s := &RecursiveCharacterTextSplitter{
		separators:   DefaultSeparators,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		lengthFunc:   utf8.RuneCountInString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := rag.ValidateChunking(s.chunkSize, s.chunkOverlap); err != nil {
		return nil, err
	}
	if len(s.separators) == 0 {
		return nil, fmt.Errorf("%w: no separators", rag.ErrInvalidChunking)
	}
	return s, nil
}

// SplitText splits text into chunks
func (s *RecursiveCharacterTextSplitter) SplitText(text string) ([]string, error) {
	return s.splitTextRecursive(text, s.separators), nil
}

// splitTextRecursive picks the first separator present in text and recurses
// with the remaining ones for oversized pieces.
func (s *RecursiveCharacterTextSplitter) splitTextRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if s.lengthFunc(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.mergeSplits(good)...)
			good = nil
		}
		if len(next) == 0 {
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				final = append(final, trimmed)
			}
		} else {
			final = append(final, s.splitTextRecursive(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.mergeSplits(good)...)
	}
	return final
}

// splitKeepingSeparator splits text on separator and attaches each separator
// to the start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = separator + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeSplits packs consecutive pieces into chunks of at most chunkSize and
// carries up to chunkOverlap trailing characters into the next chunk.
func (s *RecursiveCharacterTextSplitter) mergeSplits(splits []string) []string {
	var docs, current []string
	total := 0

	for _, d := range splits {
		l := s.lengthFunc(d)
		if total+l > s.chunkSize && len(current) > 0 {
			if doc := joinChunk(current); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > s.chunkOverlap || total+l > s.chunkSize) {
				total -= s.lengthFunc(current[0])
				current = current[1:]
			}
		}
		current = append(current, d)
		total += l
	}

	if doc := joinChunk(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinChunk(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}
