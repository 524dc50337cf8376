package embeddings

import (
	"context"
	"errors"
)

// Sentinel errors shared by every Provider implementation.
var (
	ErrEmptyInput    = errors.New("empty or nil input texts")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Embedder generates vector embeddings from text. Implementations may embed
// documents and queries differently (e.g. BGE-style "passage: "/"query: "
// prefixes), so both methods exist even when a caller only has one string.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder that also reports its output dimension (needed to
// size a vector store collection) and owns resources that must be released.
type Provider interface {
	Embedder
	Dimension() int
	Close() error
}

// ProviderConfig selects and configures the embedder chain NewProvider
// assembles: a remote langchaingo embedder, a local FastEmbed fallback, and
// a SHA-256 cache in front of both.
type ProviderConfig struct {
	// Remote, OpenAI-compatible embedding API (e.g. TEI, Azure OpenAI).
	// Endpoint empty disables the remote tier entirely.
	RemoteEndpoint   string
	RemoteAPIKey     string
	RemoteModel      string
	RemoteDeployment string

	// Local FastEmbed fallback.
	LocalModel    string
	LocalCacheDir string

	// CacheSize bounds the embedding cache's entry count (LRU-ish: evicts
	// oldest insertion once full). 0 disables the cache.
	CacheSize int
}
