// Package vectorstore holds the similarity-search backends the retriever
// and the ingest pipeline talk to.
package vectorstore

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Hit is one ranked search result with its raw payload
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Point is one vector with its payload, as written by ingestion
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Backend is a similarity-search index. Implementations must be safe for concurrent use.
type Backend interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dimension int) error
	Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error)
	Upsert(ctx context.Context, name string, points []Point) error
	Count(ctx context.Context, name string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// EnsureCollection creates the collection when it does not exist yet
func EnsureCollection(ctx context.Context, b Backend, name string, dimension int, logger *zap.Logger) error {
	exists, err := b.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", name, err)
	}
	if exists {
		return nil
	}

	if err := b.CreateCollection(ctx, name, dimension); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	logger.Info("vector collection created",
		zap.String("collection", name),
		zap.Int("dimension", dimension))
	return nil
}

// clampScore maps cosine similarity into [0,1]
func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
