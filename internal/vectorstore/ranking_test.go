package vectorstore

import (
	"testing"
	"time"
)

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := cosineSimilarity(a, a); got < 0.999 || got > 1.001 {
		t.Fatalf("expected ~1.0 for identical vectors, got %v", got)
	}
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := cosineSimilarity(a, b); got != 0 {
		t.Fatalf("expected 0 for orthogonal vectors, got %v", got)
	}
}

func TestCosineSimilarityMismatchedLength(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestProximityExactFileMatch(t *testing.T) {
	if got := proximity("a/b.go", []string{"a/b.go"}); got != 1.0 {
		t.Fatalf("expected 1.0 for exact match, got %v", got)
	}
}

func TestProximitySameDirectory(t *testing.T) {
	if got := proximity("a/c.go", []string{"a/b.go"}); got != 1.0 {
		t.Fatalf("expected 1.0 for same directory, got %v", got)
	}
}

func TestProximityNoFocusFiles(t *testing.T) {
	if got := proximity("a/c.go", nil); got != 0 {
		t.Fatalf("expected 0 with no focus files, got %v", got)
	}
}

func TestRecencyDecaysWithAge(t *testing.T) {
	now := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	fresh := recency(now.Add(-time.Hour), now)
	week := recency(now.Add(-7*24*time.Hour), now)
	if fresh <= week {
		t.Fatalf("expected fresher chunk to score higher: fresh=%v week=%v", fresh, week)
	}
	if week < 0.35 || week > 0.38 {
		t.Fatalf("expected exp(-1) ~= 0.368 at one half-life, got %v", week)
	}
}

func TestRecencyZeroTime(t *testing.T) {
	if got := recency(time.Time{}, time.Now()); got != 0 {
		t.Fatalf("expected 0 for zero-value UpdatedAt, got %v", got)
	}
}

func TestRankTopKDropsBelowThreshold(t *testing.T) {
	now := time.Now()
	candidates := []SearchResult{
		{Chunk: Chunk{Path: "a.go", UpdatedAt: now}, Similarity: 0.9},
		{Chunk: Chunk{Path: "b.go", UpdatedAt: now}, Similarity: 0.5},
	}
	out := rankTopK(candidates, Filters{}, 10, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(out))
	}
	if out[0].Chunk.Path != "a.go" {
		t.Fatalf("expected a.go to survive, got %s", out[0].Chunk.Path)
	}
}

func TestRankTopKCapsAtK(t *testing.T) {
	now := time.Now()
	candidates := []SearchResult{
		{Chunk: Chunk{Path: "a.go", UpdatedAt: now}, Similarity: 0.95},
		{Chunk: Chunk{Path: "b.go", UpdatedAt: now}, Similarity: 0.9},
		{Chunk: Chunk{Path: "c.go", UpdatedAt: now}, Similarity: 0.85},
	}
	out := rankTopK(candidates, Filters{}, 2, now)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestRankTopKTieBreaksByRecencyThenPath(t *testing.T) {
	now := time.Now()
	older := now.Add(-48 * time.Hour)
	candidates := []SearchResult{
		{Chunk: Chunk{Path: "z.go", UpdatedAt: older}, Similarity: 0.8},
		{Chunk: Chunk{Path: "a.go", UpdatedAt: now}, Similarity: 0.8},
	}
	out := rankTopK(candidates, Filters{}, 10, now)
	if out[0].Chunk.Path != "a.go" {
		t.Fatalf("expected more recent chunk first on similarity tie, got %s", out[0].Chunk.Path)
	}
}

func TestRankTopKTieBreaksLexicographicallyOnFullTie(t *testing.T) {
	now := time.Now()
	candidates := []SearchResult{
		{Chunk: Chunk{Path: "z.go", UpdatedAt: now}, Similarity: 0.8},
		{Chunk: Chunk{Path: "a.go", UpdatedAt: now}, Similarity: 0.8},
	}
	out := rankTopK(candidates, Filters{}, 10, now)
	if out[0].Chunk.Path != "a.go" {
		t.Fatalf("expected lexicographically-first path first, got %s", out[0].Chunk.Path)
	}
}

func TestRankTopKFocusFileBoostsProximateChunk(t *testing.T) {
	now := time.Now()
	candidates := []SearchResult{
		{Chunk: Chunk{Path: "pkg/other/x.go", UpdatedAt: now}, Similarity: 0.75},
		{Chunk: Chunk{Path: "pkg/focus/y.go", UpdatedAt: now}, Similarity: 0.72},
	}
	out := rankTopK(candidates, Filters{FocusFiles: []string{"pkg/focus/z.go"}}, 10, now)
	if out[0].Chunk.Path != "pkg/focus/y.go" {
		t.Fatalf("expected proximate chunk to outrank a slightly more similar distant one, got %s", out[0].Chunk.Path)
	}
}
