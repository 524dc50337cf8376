//go:build !cgo

package embeddings

import (
	"context"
	"fmt"
)

// FastEmbedConfig configures the local FastEmbed fallback tier. In a
// non-cgo build fastembed-go's ONNX runtime bindings aren't available, so
// this tier can be configured but never constructed.
type FastEmbedConfig struct {
	Model    string
	CacheDir string
}

// FastEmbedProvider is unavailable without cgo; NewFastEmbedProvider always
// errors so callers fall through to the keyword-overlap degrade path
// instead of panicking on a nil model.
type FastEmbedProvider struct{}

// NewFastEmbedProvider always returns an error in a non-cgo build.
func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, fmt.Errorf("%w: fastembed requires a cgo build (got GOOS/GOARCH without cgo)", ErrInvalidConfig)
}

func (p *FastEmbedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("fastembed unavailable without cgo")
}

func (p *FastEmbedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("fastembed unavailable without cgo")
}

func (p *FastEmbedProvider) Dimension() int { return 0 }

func (p *FastEmbedProvider) Close() error { return nil }
