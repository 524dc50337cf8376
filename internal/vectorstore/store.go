package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Store is the single entry point for chunk retrieval: embed, store,
// searchTopK. It owns the ranking and ranks with the keyword-degrade
// fallback; a backend only persists vectors and runs raw similarity search.
type Store struct {
	backend  backend
	embedder Embedder
	logger   *zap.Logger

	// known mirrors every chunk ever passed to StoreChunks in this process,
	// so keyword-degrade search has a corpus to rank against even when the
	// embedding path (and therefore the backend's own query path) is down.
	mu    sync.RWMutex
	known []Chunk
}

// NewStore wires a backend (chromem or qdrant) to an embedder. Prefer
// NewStoreFromConfig, which selects and constructs the backend for you.
func NewStore(b backend, embedder Embedder, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: b, embedder: embedder, logger: logger}
}

// StoreChunks embeds and persists chunks (spec §4.2's "store").
func (s *Store) StoreChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.Content == "" {
			return ErrChunkRequired
		}
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	if err := s.backend.put(ctx, chunks, vectors); err != nil {
		return err
	}

	s.mu.Lock()
	s.known = append(s.known, chunks...)
	s.mu.Unlock()

	chunksStoredTotal.Add(float64(len(chunks)))
	s.logger.Debug("stored chunks", zap.Int("count", len(chunks)))
	return nil
}

// SearchTopK embeds the query, runs similarity search through the backend,
// and re-ranks by the similarity+proximity+recency blend (spec §4.2). If
// embedding the query fails outright, it degrades to keyword overlap search
// over the chunks seen so far and marks results Degraded.
func (s *Store) SearchTopK(ctx context.Context, query string, k int, filters Filters) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	timer := prometheus.NewTimer(searchDuration)
	defer timer.ObserveDuration()

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("embedding query failed, degrading to keyword search", zap.Error(err))
		results := s.degradedSearch(query, k, filters)
		recordSearch(results, true)
		return results, nil
	}

	// Overfetch from the backend since its raw similarity ranking ignores
	// proximity/recency; re-rank the wider candidate set ourselves.
	candidates, err := s.backend.search(ctx, query, vector, overfetchK(k))
	if err != nil {
		s.logger.Warn("backend search failed, degrading to keyword search", zap.Error(err))
		results := s.degradedSearch(query, k, filters)
		recordSearch(results, true)
		return results, nil
	}

	results := rankTopK(candidates, filters, k, time.Now())
	recordSearch(results, false)
	return results, nil
}

func (s *Store) degradedSearch(query string, k int, filters Filters) []SearchResult {
	s.mu.RLock()
	chunks := make([]Chunk, len(s.known))
	copy(chunks, s.known)
	s.mu.RUnlock()
	return keywordSearch(query, chunks, filters, k, time.Now())
}

// Close releases the backend's resources.
func (s *Store) Close() error {
	return s.backend.close()
}

// overfetchK widens the backend query so the caller's own re-ranking has a
// real candidate pool to work with, capped to avoid unbounded backend load.
func overfetchK(k int) int {
	const factor = 3
	const max = 100
	n := k * factor
	if n > max {
		return max
	}
	if n < k {
		return k
	}
	return n
}
