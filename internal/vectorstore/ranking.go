package vectorstore

import (
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// minSimilarity is the floor below which a candidate is dropped from
// SearchTopK results even if fewer than K matches remain (spec §4.2).
const minSimilarity = 0.7

// proximityWeight and recencyWeight are the blend weights in the ranking
// formula: score = similarity + proximityWeight*proximity + recencyWeight*recency (spec §4.2).
const (
	proximityWeight = 0.3
	recencyWeight   = 0.2
	recencyHalfLife = 7.0 // days
)

// cosineSimilarity compares two equal-length vectors. Embedding providers in
// this package normalize their output, but this still divides by the norms
// defensively in case a caller hands in raw (unnormalized) vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// proximity returns 1.0 when path equals or shares a directory with one of
// the focus files, 0.5 when it shares a parent directory further up the
// tree, and 0 otherwise.
func proximity(path string, focusFiles []string) float64 {
	if len(focusFiles) == 0 {
		return 0
	}
	dir := filepath.Dir(path)
	for _, f := range focusFiles {
		if f == path {
			return 1.0
		}
		if filepath.Dir(f) == dir {
			return 1.0
		}
	}
	for _, f := range focusFiles {
		if strings.HasPrefix(dir, filepath.Dir(f)) || strings.HasPrefix(filepath.Dir(f), dir) {
			return 0.5
		}
	}
	return 0
}

// recency returns exp(-age_days/7), decaying toward 0 as a chunk ages.
func recency(updatedAt time.Time, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(updatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / recencyHalfLife)
}

// score blends similarity, proximity to the caller's focus files, and
// recency into a single ranking value (spec §4.2).
func score(similarity float64, chunk Chunk, filters Filters, now time.Time) float64 {
	return similarity + proximityWeight*proximity(chunk.Path, filters.FocusFiles) + recencyWeight*recency(chunk.UpdatedAt, now)
}

// rankTopK drops candidates below minSimilarity, scores the rest, and
// returns up to k sorted by score descending. Ties break by more recent
// UpdatedAt, then lexicographically by path (spec §4.2).
func rankTopK(candidates []SearchResult, filters Filters, k int, now time.Time) []SearchResult {
	return rankWithThreshold(candidates, filters, k, now, minSimilarity)
}

// rankWithThreshold is rankTopK parameterized on the similarity floor, so the
// keyword-degrade path (whose overlap scores live on a different scale) can
// skip the vector-search threshold while reusing the same scoring and
// tie-break logic.
func rankWithThreshold(candidates []SearchResult, filters Filters, k int, now time.Time, threshold float64) []SearchResult {
	kept := make([]SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity < threshold {
			continue
		}
		c.Score = score(c.Similarity, c.Chunk, filters, now)
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if !kept[i].Chunk.UpdatedAt.Equal(kept[j].Chunk.UpdatedAt) {
			return kept[i].Chunk.UpdatedAt.After(kept[j].Chunk.UpdatedAt)
		}
		return kept[i].Chunk.Path < kept[j].Chunk.Path
	})
	if k >= 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
