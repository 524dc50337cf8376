package vectorstore

import (
	"fmt"

	"github.com/flexicli/flexicli/internal/config"
	"go.uber.org/zap"
)

// NewStoreFromConfig builds a Store backed by whichever provider
// cfg.VectorStore.Provider names: "chromem" (default, embedded, no external
// service) or "qdrant" (requires a reachable Qdrant server).
func NewStoreFromConfig(cfg *config.Config, embedder Embedder, logger *zap.Logger) (*Store, error) {
	var b backend
	var err error

	switch cfg.VectorStore.Provider {
	case "chromem", "":
		b, err = newChromemBackend(ChromemConfig{
			Path:       cfg.VectorStore.Chromem.Path,
			Compress:   cfg.VectorStore.Chromem.Compress,
			Collection: cfg.VectorStore.Chromem.DefaultCollection,
		}, embedder, logger)

	case "qdrant":
		b, err = newQdrantBackend(QdrantConfig{
			Host:           cfg.Qdrant.Host,
			Port:           cfg.Qdrant.Port,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		})

	default:
		return nil, fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", cfg.VectorStore.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewStore(b, embedder, logger), nil
}
