package observability

import (
	"sync/atomic"
	"time"
)

// PipelineMetrics counts pipeline outcomes. Safe for concurrent use.
type PipelineMetrics struct {
	succeeded         atomic.Int64
	refused           atomic.Int64
	errored           atomic.Int64
	groundingFailures atomic.Int64
	retrievalFallback atomic.Int64
	totalLatencyMs    atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters
type MetricsSnapshot struct {
	Total             int64   `json:"total"`
	Succeeded         int64   `json:"succeeded"`
	Refused           int64   `json:"refused"`
	Errored           int64   `json:"errored"`
	GroundingFailures int64   `json:"grounding_failures"`
	RetrievalFallback int64   `json:"retrieval_fallbacks"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
}

// NewPipelineMetrics creates zeroed counters
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{}
}

// RecordOutcome counts one finished run by its status string
func (m *PipelineMetrics) RecordOutcome(status string, elapsed time.Duration) {
	switch status {
	case "success":
		m.succeeded.Add(1)
	case "refused":
		m.refused.Add(1)
	default:
		m.errored.Add(1)
	}
	m.totalLatencyMs.Add(elapsed.Milliseconds())
}

// RecordGroundingFailure counts an answer that failed the grounding check
func (m *PipelineMetrics) RecordGroundingFailure() {
	m.groundingFailures.Add(1)
}

// RecordRetrievalFallback counts a search that failed open to empty evidence
func (m *PipelineMetrics) RecordRetrievalFallback() {
	m.retrievalFallback.Add(1)
}

// Snapshot returns the current counters
func (m *PipelineMetrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Succeeded:         m.succeeded.Load(),
		Refused:           m.refused.Load(),
		Errored:           m.errored.Load(),
		GroundingFailures: m.groundingFailures.Load(),
		RetrievalFallback: m.retrievalFallback.Load(),
	}
	s.Total = s.Succeeded + s.Refused + s.Errored
	if s.Total > 0 {
		s.AverageLatencyMs = float64(m.totalLatencyMs.Load()) / float64(s.Total)
	}
	return s
}
