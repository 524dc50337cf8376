package embeddings

import "testing"

func TestNewLangchainEmbedderRequiresEndpoint(t *testing.T) {
	if _, err := NewLangchainEmbedder("", "key", "model"); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

func TestNewLangchainEmbedderRequiresModel(t *testing.T) {
	if _, err := NewLangchainEmbedder("http://localhost:8080", "key", ""); err == nil {
		t.Fatalf("expected error for empty model")
	}
}

func TestNewLangchainEmbedderAcceptsEmptyAPIKey(t *testing.T) {
	// TEI-style servers don't require a key; langchaingo's client accepts a
	// placeholder token instead of failing outright.
	e, err := NewLangchainEmbedder("http://localhost:8080/v1", "", "BAAI/bge-small-en-v1.5")
	if err != nil {
		t.Fatalf("unexpected error constructing with empty api key: %v", err)
	}
	if e.Dimension() != 384 {
		t.Fatalf("expected dimension 384 for bge-small, got %d", e.Dimension())
	}
}
