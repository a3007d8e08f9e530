package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/grounded-qa/app"
	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/handlers"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/utils"
	"go.uber.org/zap/zaptest"
)

const answer = "ROS 2 connects the sensors and actuators of the robot."

// completionServer stands in for the chat completion endpoint. Embeddings are
// never requested because the tests only use selection mode.
func completionServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": answer},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	srv := completionServer(t)

	cfg := &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			RequestTimeout: 10 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		VectorStore: config.VectorStoreConfig{
			Backend:    config.BackendMemory,
			Collection: "book_chunks",
			Dimension:  4,
		},
		Embedding: config.EmbeddingConfig{
			BaseURL:   srv.URL,
			Model:     "test-embedder",
			Timeout:   time.Second,
			CacheSize: 8,
			CacheTTL:  time.Minute,
		},
		Generation: config.GenerationConfig{
			BaseURL:        srv.URL,
			Model:          "test-generator",
			MaxTokens:      100,
			Timeout:        5 * time.Second,
			RetryBaseDelay: time.Millisecond,
		},
		Pipeline: config.PipelineConfig{
			MaxQueryLength:      1000,
			TopK:                5,
			Deadline:            10 * time.Second,
			GroundingPolicy:     config.GroundingAdvisory,
			MinSimilarity:       0.35,
			MinContextChars:     50,
			MinOverlap:          0.3,
			MinGroundingScore:   0.7,
			ExternalFlagPenalty: 0.3,
			ConfidenceBoost:     0.2,
		},
		Ingest: config.IngestConfig{ChunkSize: 200, ChunkOverlap: 40, BatchSize: 8},
		Observability: config.ObservabilityConfig{
			LogLevel:          "debug",
			HistoryWorkers:    1,
			HistoryBufferSize: 10,
		},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	return SetupRoutes(deps)
}

func do(router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/api/health"} {
		w := do(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	for _, path := range []string{"/readyz", "/api/ready"} {
		w := do(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)

		var health handlers.HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
		assert.Equal(t, "disabled", health.Checks["database"])
		assert.Equal(t, "missing", health.Checks["collection"])
	}
}

func TestChatRoutes(t *testing.T) {
	router := newTestRouter(t)
	selection := handlers.ChatRequest{
		Query:        "What does ROS 2 connect?",
		QueryType:    string(models.QueryModeSelection),
		SelectedText: "ROS 2 is the middleware that connects the sensors and actuators of a humanoid robot.",
	}

	for _, path := range []string{"/api/chat", "/api/v1/chat"} {
		t.Run(path, func(t *testing.T) {
			w := do(router, http.MethodPost, path, selection)

			require.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

			var resp models.Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, models.StatusSuccess, resp.Status)
			assert.Equal(t, answer, resp.Text)
			assert.Equal(t, []string{models.SelectionSourcePath}, resp.Sources)
		})
	}

	t.Run("empty query is a bad request", func(t *testing.T) {
		w := do(router, http.MethodPost, "/api/v1/chat", handlers.ChatRequest{QueryType: "full_book"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/v1/chat", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHistoryRoutes_Disabled(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/v1/queries/8a4c3d2e-1f0b-4a6c-9d8e-7f6a5b4c3d2e", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(router, http.MethodGet, "/api/v1/queries/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Contains(t, body, "pipeline")
	assert.Contains(t, body, "embedding_cache")
	assert.NotContains(t, body, "history")
}

func TestNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := do(router, http.MethodGet, "/api/v1/nothing-here", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "endpoint not found", body.Message)
}
