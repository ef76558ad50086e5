package rag

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankChunks scores chunks against query and returns the best k, highest first.
// Ties keep insertion order.
func RankChunks(query []float32, chunks []Chunk, k int) []SearchResult {
	if k <= 0 {
		k = DefaultK
	}

	results := make([]SearchResult, len(chunks))
	for i, c := range chunks {
		results[i] = SearchResult{Chunk: c, Score: CosineSimilarity(query, c.Embedding)}
	}

	slices.SortStableFunc(results, func(a, b SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// FilterByScore drops results scoring below threshold.
func FilterByScore(results []SearchResult, threshold float64) []SearchResult {
	if threshold <= 0 {
		return results
	}
	return slices.DeleteFunc(results, func(r SearchResult) bool {
		return r.Score < threshold
	})
}
