package vectorstore

import (
	"context"
	"strconv"
	"time"
)

// backend is the narrow contract each vector database implementation
// satisfies. Store (store.go) owns embedding, ranking, and the
// keyword-degrade fallback; a backend only has to persist chunks with
// precomputed vectors and return similarity-scored candidates.
type backend interface {
	put(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	search(ctx context.Context, queryText string, queryVector []float32, k int) ([]SearchResult, error)
	close() error
}

// chunkMetadata keys used when a chunk is flattened to a string map for
// backends (chromem, qdrant payloads) that only store string/scalar fields.
const (
	metaPath        = "path"
	metaContentHash = "content_hash"
	metaLineSpan    = "line_span"
	metaChunkType   = "chunk_type"
	metaTokenCount  = "token_count"
	metaUpdatedAt   = "updated_at"
)

func chunkToMetadata(c Chunk) map[string]string {
	return map[string]string{
		metaPath:        c.Path,
		metaContentHash: c.ContentHash,
		metaLineSpan:    c.LineSpan,
		metaChunkType:   c.ChunkType,
		metaTokenCount:  strconv.Itoa(c.TokenCount),
		metaUpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func chunkFromMetadata(content string, meta map[string]string) Chunk {
	tokenCount, _ := strconv.Atoi(meta[metaTokenCount])
	updatedAt, _ := time.Parse(time.RFC3339, meta[metaUpdatedAt])
	return Chunk{
		Path:        meta[metaPath],
		Content:     content,
		ContentHash: meta[metaContentHash],
		LineSpan:    meta[metaLineSpan],
		ChunkType:   meta[metaChunkType],
		TokenCount:  tokenCount,
		UpdatedAt:   updatedAt,
	}
}

func chunkID(c Chunk) string {
	return c.Path + "#" + c.LineSpan
}
