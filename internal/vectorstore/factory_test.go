package vectorstore

import (
	"testing"

	"github.com/flexicli/flexicli/internal/config"
)

func TestNewStoreFromConfigRejectsUnknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.VectorStore.Provider = "made-up-backend"
	if _, err := NewStoreFromConfig(cfg, &fakeEmbedder{vector: []float32{1}}, nil); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
