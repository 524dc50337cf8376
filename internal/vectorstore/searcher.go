package vectorstore

import (
	"context"

	"github.com/flexicli/flexicli/internal/memory"
)

// MemorySearcher adapts a Store to memory.Searcher (the context-assembly
// chunk expansion path), translating SearchResult into the RetrievedChunk
// shape the prompt builder expects. A result's own Degraded flag (set when
// SearchTopK fell back to keyword search) is surfaced directly rather than
// failing the turn outright: a vector-store outage degrades retrieval
// instead of aborting it.
type MemorySearcher struct {
	Store *Store
	Ctx   context.Context
}

// SearchTopK implements memory.Searcher.
func (m MemorySearcher) SearchTopK(query string, k int, filters map[string]any) ([]memory.RetrievedChunk, error) {
	ctx := m.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := m.Store.SearchTopK(ctx, query, k, filtersFromMap(filters))
	if err != nil {
		return nil, err
	}

	out := make([]memory.RetrievedChunk, 0, len(results))
	for _, r := range results {
		out = append(out, memory.RetrievedChunk{
			Path:        r.Chunk.Path,
			Content:     r.Chunk.Content,
			ContentHash: r.Chunk.ContentHash,
			LineSpan:    r.Chunk.LineSpan,
			ChunkType:   r.Chunk.ChunkType,
			Similarity:  r.Similarity,
			TokenCount:  r.Chunk.TokenCount,
			Degraded:    r.Degraded,
		})
	}
	return out, nil
}

func filtersFromMap(m map[string]any) Filters {
	var f Filters
	if v, ok := m["focus_files"].([]string); ok {
		f.FocusFiles = v
	}
	return f
}
