package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{calls: make(map[string]int)}
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[text]++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int { return 2 }

func (c *countingEmbedder) count(text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[text]
}

func TestCachedEmbedder_HitAndMiss(t *testing.T) {
	inner := newCountingEmbedder()
	cache := NewCachedEmbedder(inner, 10, time.Minute)
	ctx := context.Background()

	v1, err := cache.Embed(ctx, "robot")
	require.NoError(t, err)
	v2, err := cache.Embed(ctx, "robot")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.count("robot"))

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
	assert.Equal(t, 2, cache.Dimension())
}

func TestCachedEmbedder_CallersCannotMutateCachedVector(t *testing.T) {
	inner := newCountingEmbedder()
	cache := NewCachedEmbedder(inner, 10, time.Minute)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "robot")
	require.NoError(t, err)
	first[0] = -1

	second, err := cache.Embed(ctx, "robot")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, second)
	second[1] = -1

	third, err := cache.Embed(ctx, "robot")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, third)
	assert.Equal(t, 1, inner.count("robot"))
}

func TestCachedEmbedder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := newCountingEmbedder()
	cache := NewCachedEmbedder(inner, 2, time.Minute)
	ctx := context.Background()

	_, _ = cache.Embed(ctx, "a")
	_, _ = cache.Embed(ctx, "b")
	_, _ = cache.Embed(ctx, "a") // a becomes most recent
	_, _ = cache.Embed(ctx, "c") // evicts b

	_, _ = cache.Embed(ctx, "a")
	_, _ = cache.Embed(ctx, "b")

	assert.Equal(t, 1, inner.count("a"))
	assert.Equal(t, 2, inner.count("b"))
	assert.Equal(t, 2, cache.Stats().Size)
}

func TestCachedEmbedder_Expiry(t *testing.T) {
	inner := newCountingEmbedder()
	cache := NewCachedEmbedder(inner, 10, time.Millisecond)
	ctx := context.Background()

	_, _ = cache.Embed(ctx, "a")
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Stats().Size)

	_, _ = cache.Embed(ctx, "a")
	assert.Equal(t, 2, inner.count("a"))
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := newCountingEmbedder()
	inner.err = errors.New("down")
	cache := NewCachedEmbedder(inner, 10, time.Minute)

	_, err := cache.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestCachedEmbedder_DisabledAndBatch(t *testing.T) {
	inner := newCountingEmbedder()
	cache := NewCachedEmbedder(inner, 0, time.Minute)
	ctx := context.Background()

	_, _ = cache.Embed(ctx, "a")
	_, _ = cache.Embed(ctx, "a")
	assert.Equal(t, 2, inner.count("a"))

	vecs, err := cache.EmbedBatch(ctx, []string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestCachedEmbedder_CleanupWorkerStops(t *testing.T) {
	cache := NewCachedEmbedder(newCountingEmbedder(), 10, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cache.StartCleanupWorker(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
