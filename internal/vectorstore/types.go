package vectorstore

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for vector store operations.
var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrEmbeddingFailed   = errors.New("failed to generate embeddings")
	ErrConnectionFailed  = errors.New("failed to connect to vector store backend")
	ErrChunkRequired     = errors.New("chunk content required")
)

// Chunk is one unit of retrievable content: a span of a file, keyed for
// dedupe by (Path, ContentHash, LineSpan) per the session store's own chunk
// identity (spec §3, §4.4).
type Chunk struct {
	Path        string
	Content     string
	ContentHash string
	LineSpan    string
	ChunkType   string
	TokenCount  int
	UpdatedAt   time.Time
}

// SearchResult is one ranked hit from SearchTopK: the chunk, its blended
// score (spec §4.2's similarity + proximity + recency formula), the raw
// cosine similarity that score was built from, and whether this result
// came from the keyword-degrade fallback rather than a real embedding
// comparison.
type SearchResult struct {
	Chunk      Chunk
	Score      float64
	Similarity float64
	Degraded   bool
}

// Filters narrows SearchTopK. FocusFiles feeds the ranking formula's
// proximity term (spec §4.2): chunks whose Path matches (or shares a
// directory with) a focus file score higher.
type Filters struct {
	FocusFiles []string
}

// Embedder generates vector embeddings from text. internal/embeddings'
// Provider satisfies this directly.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
