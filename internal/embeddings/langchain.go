package embeddings

import (
	"context"
	"fmt"
	"strings"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainEmbedder is the remote embedding tier: any OpenAI-compatible
// endpoint (TEI, Azure OpenAI, OpenAI itself) reached through langchaingo's
// embeddings abstraction, grounded on the same openai.New +
// embeddings.NewEmbedder wiring used elsewhere in the fyrsmithlabs-contextd
// pack for its remote embedding service.
type LangchainEmbedder struct {
	embedder  *lcembeddings.EmbedderImpl
	dimension int
}

// NewLangchainEmbedder constructs the remote tier. endpoint is required;
// apiKey may be empty for servers (like TEI) that don't enforce one.
func NewLangchainEmbedder(endpoint, apiKey, model string) (*LangchainEmbedder, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: remote endpoint required", ErrInvalidConfig)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: remote model required", ErrInvalidConfig)
	}
	if apiKey == "" {
		// langchaingo's openai client refuses an empty token even against
		// servers that don't check it.
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(endpoint),
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &LangchainEmbedder{
		embedder:  embedder,
		dimension: modelDimension(model),
	}, nil
}

// EmbedDocuments implements Embedder.
func (e *LangchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}

// EmbedQuery implements Embedder.
func (e *LangchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

// Dimension implements Provider.
func (e *LangchainEmbedder) Dimension() int { return e.dimension }

// Close implements Provider. The remote tier holds no local resources.
func (e *LangchainEmbedder) Close() error { return nil }

// modelDimension returns the known embedding dimension for a model name,
// falling back to a size-class guess from the name itself.
func modelDimension(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	switch {
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "base"):
		return 768
	default:
		return 384
	}
}
