package embeddings

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const embeddingsInstrumentationName = "github.com/flexicli/flexicli/internal/embeddings"

// metrics holds the embedding pipeline's OpenTelemetry instruments: which
// tier actually served a call (remote, local, or cache) and how often each
// falls through to the next.
type metrics struct {
	calls   metric.Int64Counter
	cache   metric.Int64Counter
	fallbacks metric.Int64Counter
}

var embeddingMetrics = newMetrics()

func newMetrics() *metrics {
	meter := otel.Meter(embeddingsInstrumentationName)
	m := &metrics{}
	m.calls, _ = meter.Int64Counter(
		"flexicli.embeddings.calls_total",
		metric.WithDescription("Embedding calls by tier (remote, local, cache_hit)"),
		metric.WithUnit("{call}"),
	)
	m.cache, _ = meter.Int64Counter(
		"flexicli.embeddings.cache_total",
		metric.WithDescription("Embedding cache hits and misses"),
		metric.WithUnit("{lookup}"),
	)
	m.fallbacks, _ = meter.Int64Counter(
		"flexicli.embeddings.fallbacks_total",
		metric.WithDescription("Times the remote embedding tier failed and the local tier was used instead"),
		metric.WithUnit("{fallback}"),
	)
	return m
}

func (m *metrics) recordCall(ctx context.Context, tier string) {
	if m.calls != nil {
		m.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
	}
}

func (m *metrics) recordCache(ctx context.Context, hit bool) {
	if m.cache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) recordFallback(ctx context.Context) {
	if m.fallbacks != nil {
		m.fallbacks.Add(ctx, 1)
	}
}
