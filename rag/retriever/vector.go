package retriever

import (
	"context"
	"fmt"

	"github.com/smallnest/agentapis/log"
	"github.com/smallnest/agentapis/rag"
	"github.com/tmc/langchaingo/schema"
)

// mmrLambda balances relevance against diversity in MMR selection.
const mmrLambda = 0.5

// mmrFetchFactor is how many candidates per requested result MMR considers.
const mmrFetchFactor = 4

// VectorRetriever answers queries against one collection using vector similarity
type VectorRetriever struct {
	store      rag.CollectionStore
	embedder   rag.Embedder
	collection string
	config     rag.RetrievalConfig
	logger     log.Logger
}

var (
	_ rag.Retriever    = (*VectorRetriever)(nil)
	_ schema.Retriever = (*VectorRetriever)(nil)
)

// Option configures a VectorRetriever
type Option func(*VectorRetriever)

// WithConfig sets the default retrieval config
func WithConfig(config rag.RetrievalConfig) Option {
	return func(r *VectorRetriever) {
		r.config = config
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(r *VectorRetriever) {
		r.logger = log.OrNoop(logger)
	}
}

// NewVectorRetriever creates a retriever bound to collection in store
func NewVectorRetriever(store rag.CollectionStore, embedder rag.Embedder, collection string, opts ...Option) *VectorRetriever {
	r := &VectorRetriever{
		store:      store,
		embedder:   embedder,
		collection: collection,
		logger:     log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.config.K <= 0 {
		r.config.K = rag.DefaultK
	}
	if r.config.SearchType == "" {
		r.config.SearchType = rag.SearchSimilarity
	}
	return r
}

// Collection returns the name of the bound collection
func (r *VectorRetriever) Collection() string {
	return r.collection
}

// Store returns the underlying collection store
func (r *VectorRetriever) Store() rag.CollectionStore {
	return r.store
}

// Close releases the underlying store
func (r *VectorRetriever) Close() error {
	return r.store.Close()
}

// Retrieve returns the top chunks for query
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]rag.Chunk, error) {
	return r.RetrieveWithK(ctx, query, r.config.K)
}

// RetrieveWithK returns at most k chunks for query
func (r *VectorRetriever) RetrieveWithK(ctx context.Context, query string, k int) ([]rag.Chunk, error) {
	config := r.config
	config.K = k
	results, err := r.RetrieveWithConfig(ctx, query, &config)
	if err != nil {
		return nil, err
	}

	chunks := make([]rag.Chunk, len(results))
	for i, result := range results {
		chunks[i] = result.Chunk
	}
	return chunks, nil
}

// RetrieveWithConfig returns scored chunks for query using config, or the retriever's
// default config when nil
func (r *VectorRetriever) RetrieveWithConfig(ctx context.Context, query string, config *rag.RetrievalConfig) ([]rag.SearchResult, error) {
	if config == nil {
		config = &r.config
	}
	k := config.K
	if k <= 0 {
		k = rag.DefaultK
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", rag.ErrEmbedding, err)
	}

	fetch := k
	if config.SearchType == rag.SearchMMR {
		fetch = k * mmrFetchFactor
	}

	results, err := r.store.Search(ctx, r.collection, queryEmbedding, fetch)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results = rag.FilterByScore(results, config.ScoreThreshold)

	switch config.SearchType {
	case "", rag.SearchSimilarity:
	case rag.SearchMMR:
		results = applyMMR(results, k)
	default:
		return nil, fmt.Errorf("unknown search type %q", config.SearchType)
	}

	r.logger.Debug("retrieved %d chunks from %s", len(results), r.collection)
	return results, nil
}

// GetRelevantDocuments implements langchaingo's schema.Retriever
func (r *VectorRetriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	results, err := r.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return rag.ToSchemaDocuments(results), nil
}

// applyMMR applies Maximal Marginal Relevance to ensure diversity.
// results must be sorted by descending score.
func applyMMR(results []rag.SearchResult, k int) []rag.SearchResult {
	if len(results) <= k {
		return results
	}

	selected := make([]rag.SearchResult, 0, k)
	selected = append(selected, results[0])

	candidates := append([]rag.SearchResult(nil), results[1:]...)

	for len(selected) < k && len(candidates) > 0 {
		bestIdx := 0
		bestScore := 0.0

		for i, candidate := range candidates {
			maxSimilarity := 0.0
			for _, s := range selected {
				if sim := rag.CosineSimilarity(candidate.Chunk.Embedding, s.Chunk.Embedding); sim > maxSimilarity {
					maxSimilarity = sim
				}
			}

			score := mmrLambda*candidate.Score - (1-mmrLambda)*maxSimilarity
			if i == 0 || score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, candidates[bestIdx])
		candidates = append(candidates[:bestIdx], candidates[bestIdx+1:]...)
	}

	return selected
}
