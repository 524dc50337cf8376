package vectorstore

import (
	"testing"
	"time"
)

func TestTokenSetLowercasesAndSplits(t *testing.T) {
	set := tokenSet("Hello, World! foo-bar")
	for _, want := range []string{"hello", "world", "foo", "bar"} {
		if _, ok := set[want]; !ok {
			t.Fatalf("expected token %q in set %v", want, set)
		}
	}
}

func TestTokenSetDropsSingleCharTokens(t *testing.T) {
	set := tokenSet("a b cd")
	if _, ok := set["a"]; ok {
		t.Fatalf("expected single-char token dropped")
	}
	if _, ok := set["cd"]; !ok {
		t.Fatalf("expected two-char token kept")
	}
}

func TestTokenOverlapIdenticalSets(t *testing.T) {
	a := tokenSet("alpha beta gamma")
	if got := tokenOverlap(a, a); got != 1.0 {
		t.Fatalf("expected 1.0 for identical sets, got %v", got)
	}
}

func TestTokenOverlapDisjointSets(t *testing.T) {
	a := tokenSet("alpha")
	b := tokenSet("zulu")
	if got := tokenOverlap(a, b); got != 0 {
		t.Fatalf("expected 0 for disjoint sets, got %v", got)
	}
}

func TestKeywordSearchRanksByOverlap(t *testing.T) {
	now := time.Now()
	chunks := []Chunk{
		{Path: "a.go", Content: "database connection pool handling", UpdatedAt: now},
		{Path: "b.go", Content: "totally unrelated content here", UpdatedAt: now},
	}
	out := keywordSearch("database connection pool", chunks, Filters{}, 10, now)
	if len(out) != 1 {
		t.Fatalf("expected 1 match, got %d", len(out))
	}
	if !out[0].Degraded {
		t.Fatalf("expected keyword search results marked Degraded")
	}
	if out[0].Chunk.Path != "a.go" {
		t.Fatalf("expected a.go to match, got %s", out[0].Chunk.Path)
	}
}

func TestKeywordSearchEmptyQueryReturnsNil(t *testing.T) {
	chunks := []Chunk{{Path: "a.go", Content: "anything"}}
	if out := keywordSearch("", chunks, Filters{}, 10, time.Now()); out != nil {
		t.Fatalf("expected nil for empty query, got %v", out)
	}
}

func TestKeywordSearchSkipsThresholdFilter(t *testing.T) {
	now := time.Now()
	chunks := []Chunk{{Path: "a.go", Content: "one tiny overlap word among many others unrelated", UpdatedAt: now}}
	out := keywordSearch("word", chunks, Filters{}, 10, now)
	if len(out) != 1 {
		t.Fatalf("expected keyword match to survive despite low Jaccard overlap, got %d results", len(out))
	}
}
