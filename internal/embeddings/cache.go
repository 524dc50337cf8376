package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// cachedProvider wraps a Provider with a SHA-256-keyed embedding cache
// (spec §4.2): a cache hit returns the stored vector without calling the
// wrapped provider at all. Grounded on the sha256.Sum256 idiom
// internal/session uses to key project directories, there being no
// existing embedding cache in the teacher to adapt directly.
type cachedProvider struct {
	Provider
	mu       sync.Mutex
	entries  map[string][]float32
	order    []string
	maxEntries int
	hits, misses int
}

// newCachedProvider bounds the cache at maxEntries (0 disables caching
// entirely and just passes every call through).
func newCachedProvider(p Provider, maxEntries int) Provider {
	if maxEntries <= 0 {
		return p
	}
	return &cachedProvider{
		Provider:   p,
		entries:    make(map[string][]float32),
		maxEntries: maxEntries,
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *cachedProvider) lookup(ctx context.Context, text string) ([]float32, bool) {
	c.mu.Lock()
	v, ok := c.entries[cacheKey(text)]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	embeddingMetrics.recordCache(ctx, ok)
	return v, ok
}

func (c *cachedProvider) store(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(text)
	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = vec
	c.order = append(c.order, key)
}

// EmbedQuery implements Embedder, checking the cache before falling through
// to the wrapped provider.
func (c *cachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(ctx, text); ok {
		return v, nil
	}
	v, err := c.Provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(text, v)
	return v, nil
}

// EmbedDocuments implements Embedder, embedding only the texts that miss
// the cache and reassembling the result in the caller's original order.
func (c *cachedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		if v, ok := c.lookup(ctx, t); ok {
			out[i] = v
		} else {
			missTexts = append(missTexts, t)
			missIdx = append(missIdx, i)
		}
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.Provider.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = vectors[j]
		c.store(missTexts[j], vectors[j])
	}
	return out, nil
}

// stats returns cumulative cache hits/misses, exposed for Metrics.
func (c *cachedProvider) stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
