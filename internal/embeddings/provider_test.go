package embeddings

import (
	"context"
	"errors"
	"testing"
)

type fakeProvider struct {
	docs      [][]float32
	query     []float32
	err       error
	dim       int
	closed    bool
	docCalls  int
	queryCalls int
}

func (f *fakeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.docCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.query, nil
}

func (f *fakeProvider) Dimension() int { return f.dim }
func (f *fakeProvider) Close() error   { f.closed = true; return nil }

func TestFallbackProviderUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &fakeProvider{query: []float32{1, 2, 3}}
	secondary := &fakeProvider{query: []float32{9, 9, 9}}
	fp := &fallbackProvider{primary: primary, secondary: secondary}

	v, err := fp.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[0] != 1 {
		t.Fatalf("expected primary's vector, got %v", v)
	}
	if secondary.queryCalls != 0 {
		t.Fatalf("secondary should not be called when primary succeeds")
	}
}

func TestFallbackProviderFallsBackOnPrimaryError(t *testing.T) {
	primary := &fakeProvider{err: errors.New("remote unavailable")}
	secondary := &fakeProvider{query: []float32{9, 9, 9}}
	fp := &fallbackProvider{primary: primary, secondary: secondary}

	v, err := fp.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v[0] != 9 {
		t.Fatalf("expected secondary's vector, got %v", v)
	}
}

func TestFallbackProviderErrorsWhenBothFail(t *testing.T) {
	primary := &fakeProvider{err: errors.New("remote down")}
	secondary := &fakeProvider{err: errors.New("local down")}
	fp := &fallbackProvider{primary: primary, secondary: secondary}

	if _, err := fp.EmbedQuery(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error when both tiers fail")
	}
}

func TestFallbackProviderClosesBothTiers(t *testing.T) {
	primary := &fakeProvider{}
	secondary := &fakeProvider{}
	fp := &fallbackProvider{primary: primary, secondary: secondary}

	if err := fp.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !primary.closed || !secondary.closed {
		t.Fatalf("expected both tiers closed")
	}
}

func TestNewProviderErrorsWithNoTierConfigured(t *testing.T) {
	if _, err := NewProvider(ProviderConfig{}); err == nil {
		t.Fatalf("expected error when neither remote nor local tier is configured")
	}
}
