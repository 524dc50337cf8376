package embeddings

import (
	"context"
	"testing"
)

func TestCachedProviderSkipsCallOnHit(t *testing.T) {
	inner := &fakeProvider{query: []float32{1, 2, 3}}
	cached := newCachedProvider(inner, 10).(*cachedProvider)

	ctx := context.Background()
	if _, err := cached.EmbedQuery(ctx, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cached.EmbedQuery(ctx, "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.queryCalls != 1 {
		t.Fatalf("expected inner provider called once, got %d", inner.queryCalls)
	}
	hits, misses := cached.stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
	}
}

func TestCachedProviderEvictsOldestWhenFull(t *testing.T) {
	inner := &fakeProvider{query: []float32{1}}
	cached := newCachedProvider(inner, 1).(*cachedProvider)
	ctx := context.Background()

	cached.EmbedQuery(ctx, "a")
	cached.EmbedQuery(ctx, "b") // evicts "a"
	cached.EmbedQuery(ctx, "a") // miss again, since "a" was evicted

	if inner.queryCalls != 3 {
		t.Fatalf("expected 3 calls through to inner provider, got %d", inner.queryCalls)
	}
}

func TestCachedProviderZeroSizeDisablesCache(t *testing.T) {
	inner := &fakeProvider{dim: 384}
	p := newCachedProvider(inner, 0)
	if _, ok := p.(*cachedProvider); ok {
		t.Fatalf("expected cache to be bypassed entirely when maxEntries is 0")
	}
}

func TestCachedProviderEmbedDocumentsPartialHit(t *testing.T) {
	inner := &fakeProvider{docs: [][]float32{{1}, {2}}}
	cached := newCachedProvider(inner, 10).(*cachedProvider)
	ctx := context.Background()

	// Warm the cache with "x" alone.
	innerSingle := &fakeProvider{query: []float32{5}}
	warm := newCachedProvider(innerSingle, 10).(*cachedProvider)
	warm.EmbedQuery(ctx, "x")

	out, err := cached.EmbedDocuments(ctx, []string{"y", "z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(out))
	}
	if inner.docCalls != 1 {
		t.Fatalf("expected exactly one batch call to inner provider, got %d", inner.docCalls)
	}
}
