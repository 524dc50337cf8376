package vectorstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("flexicli.vectorstore.qdrant")

// QdrantConfig configures the native gRPC Qdrant client. gRPC is used
// instead of Qdrant's HTTP REST layer to avoid the 256kB request-body limit
// that trips on larger chunks.
type QdrantConfig struct {
	Host           string
	Port           int
	CollectionName string
	VectorSize     uint64
	Distance       qdrant.Distance
	UseTLS         bool

	MaxRetries              int
	RetryBackoff            time.Duration
	MaxMessageSize          int
	CircuitBreakerThreshold int
}

func (c *QdrantConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.Distance == 0 {
		c.Distance = qdrant.Distance_Cosine
	}
}

func (c QdrantConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.CollectionName == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// isTransientError reports whether a gRPC error is worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// qdrantBackend implements backend against a single Qdrant collection over
// native gRPC, with a retry loop and a simple failure-count circuit breaker
// to stay resilient against a flaky or momentarily overloaded server.
type qdrantBackend struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
	cfg        QdrantConfig

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

func newQdrantBackend(cfg QdrantConfig) (*qdrantBackend, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if !cfg.UseTLS {
		fmt.Fprintln(os.Stderr, "WARNING: Qdrant gRPC using plaintext (TLS disabled). Insecure for production.")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	b := &qdrantBackend{client: client, collection: cfg.CollectionName, vectorSize: cfg.VectorSize, cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	if err := b.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return b, nil
}

func (b *qdrantBackend) ensureCollection(ctx context.Context) error {
	if _, err := b.client.GetCollectionInfo(ctx, b.collection); err == nil {
		return nil
	}
	err := b.retry(ctx, "create_collection", func() error {
		return b.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: b.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     b.vectorSize,
				Distance: b.cfg.Distance,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", b.collection, err)
	}
	return nil
}

func (b *qdrantBackend) retry(ctx context.Context, op string, fn func() error) error {
	backoff := b.cfg.RetryBackoff
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			b.circuitBreaker.mu.Lock()
			b.circuitBreaker.failures = 0
			b.circuitBreaker.mu.Unlock()
			return nil
		}

		b.circuitBreaker.mu.Lock()
		open := b.circuitBreaker.failures >= b.cfg.CircuitBreakerThreshold && time.Since(b.circuitBreaker.lastFail) < 30*time.Second
		b.circuitBreaker.mu.Unlock()
		if open {
			return fmt.Errorf("%s: circuit breaker open", op)
		}

		if !isTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", op, err)
		}

		b.circuitBreaker.mu.Lock()
		b.circuitBreaker.failures++
		b.circuitBreaker.lastFail = time.Now()
		b.circuitBreaker.mu.Unlock()

		if attempt == b.cfg.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", op, b.cfg.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", op, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (b *qdrantBackend) put(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	ctx, span := tracer.Start(ctx, "qdrantBackend.put")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	if len(chunks) == 0 {
		return nil
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: vectors/chunks length mismatch", ErrEmbeddingFailed)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		payload := map[string]*qdrant.Value{
			"content": {Kind: &qdrant.Value_StringValue{StringValue: c.Content}},
		}
		for k, v := range chunkToMetadata(c) {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID(c))).String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	err := b.retry(ctx, "upsert", func() error {
		_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: b.collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points: %w", err)
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

func (b *qdrantBackend) search(ctx context.Context, _ string, queryVector []float32, k int) ([]SearchResult, error) {
	ctx, span := tracer.Start(ctx, "qdrantBackend.search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	var points []*qdrant.ScoredPoint
	err := b.retry(ctx, "search", func() error {
		res, err := b.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: b.collection,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", b.collection, err)
	}

	out := make([]SearchResult, len(points))
	for i, p := range points {
		content := ""
		meta := make(map[string]string, len(p.Payload))
		for k, v := range p.Payload {
			if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				if k == "content" {
					content = s.StringValue
					continue
				}
				meta[k] = s.StringValue
			}
		}
		out[i] = SearchResult{
			Chunk:      chunkFromMetadata(content, meta),
			Similarity: float64(p.Score),
		}
	}
	span.SetAttributes(attribute.Int("results_count", len(out)))
	span.SetStatus(codes.Ok, "success")
	return out, nil
}

func (b *qdrantBackend) close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}
