package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/upb/grounded-qa/services"
)

type memoryCollection struct {
	dimension int
	points    map[string]Point
}

// MemoryBackend keeps points in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{collections: make(map[string]*memoryCollection)}
}

func (m *MemoryBackend) CollectionExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MemoryBackend) CreateCollection(ctx context.Context, name string, dimension int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = &memoryCollection{dimension: dimension, points: make(map[string]Point)}
	}
	return nil
}

func (m *MemoryBackend) Search(ctx context.Context, name string, vector []float32, topK int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[name]
	if !ok {
		return nil, services.ErrCollectionMissing
	}
	if len(vector) != c.dimension {
		return nil, services.NewDimensionMismatch(c.dimension, len(vector))
	}

	hits := make([]Hit, 0, len(c.points))
	for _, p := range c.points {
		hits = append(hits, Hit{
			ID:      p.ID,
			Score:   clampScore(cosineSimilarity(vector, p.Vector)),
			Payload: p.Payload,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})
	if topK >= 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryBackend) Upsert(ctx context.Context, name string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[name]
	if !ok {
		return services.ErrCollectionMissing
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return services.NewDimensionMismatch(c.dimension, len(p.Vector))
		}
	}
	for _, p := range points {
		c.points[p.ID] = p
	}
	return nil
}

func (m *MemoryBackend) Count(ctx context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[name]
	if !ok {
		return 0, services.ErrCollectionMissing
	}
	return len(c.points), nil
}

func (m *MemoryBackend) Ping(ctx context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return nil }
