package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/grounded-qa/internal/observability"
	"github.com/upb/grounded-qa/services/embedding"
	"github.com/upb/grounded-qa/services/history"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fixedEmbedder) Dimension() int { return 2 }

type fixedRecorderStats struct{}

func (fixedRecorderStats) GetStats() history.Stats {
	return history.Stats{BufferSize: 1000, WorkerCount: 2, Written: 7, Started: true}
}

func TestHandleMetrics(t *testing.T) {
	metrics := observability.NewPipelineMetrics()
	metrics.RecordOutcome("success", 100*time.Millisecond)
	metrics.RecordOutcome("refused", 300*time.Millisecond)
	metrics.RecordGroundingFailure()

	cache := embedding.NewCachedEmbedder(fixedEmbedder{}, 10, time.Minute)
	_, err := cache.Embed(context.Background(), "q")
	require.NoError(t, err)
	_, err = cache.Embed(context.Background(), "q")
	require.NoError(t, err)

	h := NewMetricsHandler(metrics, cache, fixedRecorderStats{})

	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp MetricsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, int64(2), resp.Pipeline.Total)
	assert.Equal(t, int64(1), resp.Pipeline.Succeeded)
	assert.Equal(t, int64(1), resp.Pipeline.Refused)
	assert.Equal(t, int64(1), resp.Pipeline.GroundingFailures)
	assert.InDelta(t, 200.0, resp.Pipeline.AverageLatencyMs, 0.001)

	require.NotNil(t, resp.EmbeddingCache)
	assert.Equal(t, uint64(1), resp.EmbeddingCache.Hits)
	assert.Equal(t, uint64(1), resp.EmbeddingCache.Misses)

	require.NotNil(t, resp.History)
	assert.Equal(t, uint64(7), resp.History.Written)
}

func TestHandleMetrics_PipelineOnly(t *testing.T) {
	h := NewMetricsHandler(observability.NewPipelineMetrics(), nil, nil)

	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body, "pipeline")
	assert.NotContains(t, body, "embedding_cache")
	assert.NotContains(t, body, "history")
}
