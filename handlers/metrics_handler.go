package handlers

import (
	"net/http"

	"github.com/upb/grounded-qa/internal/observability"
	"github.com/upb/grounded-qa/services/embedding"
	"github.com/upb/grounded-qa/services/history"
	"github.com/upb/grounded-qa/utils"
)

// PipelineCounters exposes the pipeline outcome counters
type PipelineCounters interface {
	Snapshot() observability.MetricsSnapshot
}

// CacheStatsSource exposes query embedding cache statistics
type CacheStatsSource interface {
	Stats() embedding.CacheStats
}

// RecorderStatsSource exposes history writer statistics
type RecorderStatsSource interface {
	GetStats() history.Stats
}

// MetricsResponse is the body of GET /api/v1/metrics
type MetricsResponse struct {
	Pipeline       observability.MetricsSnapshot `json:"pipeline"`
	EmbeddingCache *embedding.CacheStats         `json:"embedding_cache,omitempty"`
	History        *history.Stats                `json:"history,omitempty"`
}

// MetricsHandler serves pipeline counters
type MetricsHandler struct {
	pipeline PipelineCounters
	cache    CacheStatsSource
	recorder RecorderStatsSource
}

// NewMetricsHandler creates a MetricsHandler. cache and recorder may be nil.
func NewMetricsHandler(pipeline PipelineCounters, cache CacheStatsSource, recorder RecorderStatsSource) *MetricsHandler {
	return &MetricsHandler{
		pipeline: pipeline,
		cache:    cache,
		recorder: recorder,
	}
}

// HandleMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := MetricsResponse{Pipeline: h.pipeline.Snapshot()}
	if h.cache != nil {
		stats := h.cache.Stats()
		resp.EmbeddingCache = &stats
	}
	if h.recorder != nil {
		stats := h.recorder.GetStats()
		resp.History = &stats
	}
	_ = utils.WriteOK(w, resp)
}
