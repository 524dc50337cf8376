package embeddings

import (
	"context"
	"fmt"
)

// fallbackProvider tries the remote tier first and falls back to the local
// tier, call by call, when the remote call itself errors (spec's "Langchain
// → FastEmbed (still real vector, degraded=false)" chain). Falling back
// here never sets a degraded flag: the caller still gets a real embedding
// vector, just from the local model instead of the remote API. Only when
// both tiers fail does internal/vectorstore degrade further to keyword
// search.
type fallbackProvider struct {
	primary, secondary Provider
}

func (f *fallbackProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.primary.EmbedQuery(ctx, text)
	if err == nil {
		embeddingMetrics.recordCall(ctx, "remote")
		return v, nil
	}
	embeddingMetrics.recordFallback(ctx)
	v, err = f.secondary.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("remote and local embedders both failed: %w", err)
	}
	embeddingMetrics.recordCall(ctx, "local")
	return v, nil
}

func (f *fallbackProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	v, err := f.primary.EmbedDocuments(ctx, texts)
	if err == nil {
		embeddingMetrics.recordCall(ctx, "remote")
		return v, nil
	}
	embeddingMetrics.recordFallback(ctx)
	v, err = f.secondary.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("remote and local embedders both failed: %w", err)
	}
	embeddingMetrics.recordCall(ctx, "local")
	return v, nil
}

func (f *fallbackProvider) Dimension() int { return f.primary.Dimension() }

func (f *fallbackProvider) Close() error {
	err1 := f.primary.Close()
	err2 := f.secondary.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// NewProvider assembles the embedding tiers SPEC_FULL.md describes for C2:
// a remote langchaingo embedder (RemoteEndpoint), a local FastEmbed
// fallback (LocalModel), or both wired through fallbackProvider, wrapped in
// a SHA-256 cache. At least one tier must be configured.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	var primary, secondary Provider
	var primaryErr, secondaryErr error

	if cfg.RemoteEndpoint != "" {
		primary, primaryErr = NewLangchainEmbedder(cfg.RemoteEndpoint, cfg.RemoteAPIKey, cfg.RemoteModel)
	}
	if cfg.LocalModel != "" {
		secondary, secondaryErr = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.LocalModel,
			CacheDir: cfg.LocalCacheDir,
		})
	}

	var p Provider
	switch {
	case primary != nil && secondary != nil:
		p = &fallbackProvider{primary: primary, secondary: secondary}
	case primary != nil:
		p = primary
	case secondary != nil:
		p = secondary
	default:
		return nil, fmt.Errorf("%w: no embedding tier available (remote: %v, local: %v)", ErrInvalidConfig, primaryErr, secondaryErr)
	}

	return newCachedProvider(p, cfg.CacheSize), nil
}
