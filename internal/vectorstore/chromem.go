package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("flexicli.vectorstore.chromem")

// ChromemConfig configures the embedded chromem-go backend: no external
// service, gob-file persistence under Path, one collection per store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the single collection this store reads and writes.
	Collection string
}

func (c *ChromemConfig) applyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/flexicli/vectorstore"
	}
	if c.Collection == "" {
		c.Collection = "flexicli_default"
	}
}

// chromemBackend implements backend using chromem-go, an embeddable vector
// database with no external service dependency (good fit for a single
// project's worth of chunks run locally alongside the CLI).
type chromemBackend struct {
	db         *chromem.DB
	collection string
	embedder   Embedder
	logger     *zap.Logger
}

func newChromemBackend(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*chromemBackend, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	path, err := expandChromemPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	b := &chromemBackend{db: db, collection: cfg.Collection, embedder: embedder, logger: logger}
	logger.Info("chromem backend initialized", zap.String("path", path), zap.String("collection", cfg.Collection))
	return b, nil
}

func expandChromemPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func (b *chromemBackend) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return b.embedder.EmbedQuery(ctx, text)
	}
}

func (b *chromemBackend) collectionHandle() (*chromem.Collection, error) {
	col, err := b.db.GetOrCreateCollection(b.collection, nil, b.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", b.collection, err)
	}
	return col, nil
}

func (b *chromemBackend) put(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	ctx, span := chromemTracer.Start(ctx, "chromemBackend.put")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	if len(chunks) == 0 {
		return nil
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: vectors/chunks length mismatch", ErrEmbeddingFailed)
	}

	col, err := b.collectionHandle()
	if err != nil {
		span.RecordError(err)
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        chunkID(c),
			Content:   c.Content,
			Metadata:  chunkToMetadata(c),
			Embedding: vectors[i],
		}
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}
	span.SetStatus(codes.Ok, "success")
	b.logger.Debug("stored chunks in chromem", zap.Int("count", len(chunks)))
	return nil
}

func (b *chromemBackend) search(ctx context.Context, queryText string, queryVector []float32, k int) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "chromemBackend.search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	col := b.db.GetCollection(b.collection, b.embeddingFunc())
	if col == nil {
		return nil, nil
	}

	docCount := col.Count()
	if docCount == 0 {
		return nil, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := col.Query(ctx, queryText, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", b.collection, err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Chunk:      chunkFromMetadata(r.Content, r.Metadata),
			Similarity: float64(r.Similarity),
		}
	}
	span.SetAttributes(attribute.Int("results_count", len(out)))
	span.SetStatus(codes.Ok, "success")
	return out, nil
}

func (b *chromemBackend) close() error {
	return nil
}
