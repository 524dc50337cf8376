package vectorstore

import (
	"testing"
	"time"
)

func TestChunkMetadataRoundTrip(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Chunk{
		Path:        "internal/foo/bar.go",
		Content:     "package foo",
		ContentHash: "abc123",
		LineSpan:    "1-10",
		ChunkType:   "function",
		TokenCount:  42,
		UpdatedAt:   updated,
	}

	meta := chunkToMetadata(c)
	got := chunkFromMetadata(c.Content, meta)

	if got.Path != c.Path || got.ContentHash != c.ContentHash || got.LineSpan != c.LineSpan ||
		got.ChunkType != c.ChunkType || got.TokenCount != c.TokenCount {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, c)
	}
	if !got.UpdatedAt.Equal(c.UpdatedAt) {
		t.Fatalf("expected UpdatedAt %v, got %v", c.UpdatedAt, got.UpdatedAt)
	}
}

func TestChunkIDIsStableForSameChunk(t *testing.T) {
	c := Chunk{Path: "a.go", LineSpan: "1-5"}
	if chunkID(c) != chunkID(c) {
		t.Fatalf("expected chunkID to be deterministic")
	}
}

func TestChunkIDDiffersByLineSpan(t *testing.T) {
	a := Chunk{Path: "a.go", LineSpan: "1-5"}
	b := Chunk{Path: "a.go", LineSpan: "6-10"}
	if chunkID(a) == chunkID(b) {
		t.Fatalf("expected different line spans to produce different ids")
	}
}
