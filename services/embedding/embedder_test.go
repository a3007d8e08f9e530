package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/services/providers"
	"go.uber.org/zap"
)

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// newEmbeddingsServer answers /embeddings with vectors of the given
// dimension whose first component is the input position. Results are
// returned in reverse order to exercise index mapping.
func newEmbeddingsServer(t *testing.T, dimension int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dimension)
			vec[0] = float32(i)
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func newTestEmbedder(url string, dimension int) *OpenAIEmbedder {
	return NewOpenAIEmbedder(config.EmbeddingConfig{
		BaseURL: url,
		Model:   "sentence-transformers/all-MiniLM-L6-v2",
		Timeout: 5 * time.Second,
	}, dimension, zap.NewNop())
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := newEmbeddingsServer(t, 4, nil)
	defer srv.Close()

	e := newTestEmbedder(srv.URL, 4)

	vec, err := e.Embed(context.Background(), "what is a humanoid robot?")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 4, e.Dimension())
}

func TestOpenAIEmbedder_EmbedBatchKeepsInputOrder(t *testing.T) {
	srv := newEmbeddingsServer(t, 3, nil)
	defer srv.Close()

	e := newTestEmbedder(srv.URL, 3)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v[0])
	}
}

func TestOpenAIEmbedder_EmptyBatch(t *testing.T) {
	e := newTestEmbedder("http://127.0.0.1:1", 3)

	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := newEmbeddingsServer(t, 3, nil)
	defer srv.Close()

	e := newTestEmbedder(srv.URL, 384)

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrDimensionMismatch)
	assert.True(t, IsPermanent(err))
}

func TestOpenAIEmbedder_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantPermanent bool
	}{
		{"server error is transient", http.StatusServiceUnavailable, false},
		{"rate limit is transient", http.StatusTooManyRequests, false},
		{"bad request is permanent", http.StatusBadRequest, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			_, err := newTestEmbedder(srv.URL, 4).Embed(context.Background(), "x")
			require.Error(t, err)

			var pe *providers.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.wantPermanent, IsPermanent(err))
		})
	}
}
