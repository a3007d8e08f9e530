package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QueryLog is the persisted record of one pipeline run
type QueryLog struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	SessionID       *uuid.UUID      `json:"session_id,omitempty" db:"session_id"`
	QueryText       string          `json:"query_text" db:"query_text"`
	QueryType       QueryMode       `json:"query_type" db:"query_type"`
	SelectedText    *string         `json:"selected_text,omitempty" db:"selected_text"`
	ResponseText    string          `json:"response_text" db:"response_text"`
	ResponseStatus  ResponseStatus  `json:"response_status" db:"response_status"`
	RetrievedChunks json.RawMessage `json:"retrieved_chunks" db:"retrieved_chunks"` // Chunk IDs used as evidence

	// Scores
	Confidence      float64 `json:"confidence" db:"confidence"`
	GroundingScore  float64 `json:"grounding_score" db:"grounding_score"`
	GroundingPassed bool    `json:"grounding_passed" db:"grounding_passed"`

	ProcessingTimeMs int64     `json:"processing_time_ms" db:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`

	// Evidence rows written alongside the query
	Evidence []QueryEvidence `json:"evidence,omitempty" db:"-"`
}

// TableName returns the table name for the QueryLog model
func (QueryLog) TableName() string {
	return "queries"
}

// QueryEvidence links one evidence chunk to a logged query
type QueryEvidence struct {
	QueryID    uuid.UUID `json:"query_id" db:"query_id"`
	ChunkID    uuid.UUID `json:"chunk_id" db:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	SourcePath string    `json:"source_path" db:"source_path"`
	Similarity float64   `json:"similarity_score" db:"similarity_score"`
	Rank       int       `json:"rank" db:"rank"`
}

// TableName returns the table name for the QueryEvidence model
func (QueryEvidence) TableName() string {
	return "query_evidence"
}

// NewQueryLog creates a log entry for a query whose outcome is not yet known
func NewQueryLog(q Query) *QueryLog {
	log := &QueryLog{
		ID:              uuid.New(),
		SessionID:       q.SessionID,
		QueryText:       q.Text,
		QueryType:       q.Mode,
		ResponseStatus:  StatusError,
		RetrievedChunks: json.RawMessage("[]"),
		CreatedAt:       time.Now(),
	}
	if q.Selection != "" {
		sel := q.Selection
		log.SelectedText = &sel
	}
	return log
}

// WithEvidence records the chunks the answer was built from
func (l *QueryLog) WithEvidence(evidence Evidence) *QueryLog {
	ids := make([]string, 0, len(evidence))
	l.Evidence = make([]QueryEvidence, 0, len(evidence))
	for i, c := range evidence {
		ids = append(ids, c.ID.String())
		l.Evidence = append(l.Evidence, QueryEvidence{
			QueryID:    l.ID,
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			SourcePath: c.SourcePath,
			Similarity: c.Similarity,
			Rank:       i,
		})
	}
	raw, err := json.Marshal(ids)
	if err == nil {
		l.RetrievedChunks = raw
	}
	return l
}

// WithGrounding copies the grounding outcome onto the log
func (l *QueryLog) WithGrounding(report *ValidationReport) *QueryLog {
	if report != nil {
		l.GroundingScore = report.GroundingScore
		l.GroundingPassed = report.Passed
	}
	return l
}

// Complete stamps the final response and elapsed time
func (l *QueryLog) Complete(resp Response, elapsed time.Duration) {
	l.ID = resp.QueryID
	for i := range l.Evidence {
		l.Evidence[i].QueryID = resp.QueryID
	}
	l.ResponseText = resp.Text
	l.ResponseStatus = resp.Status
	l.Confidence = resp.Confidence
	l.ProcessingTimeMs = elapsed.Milliseconds()
}

// ChunkIDs decodes RetrievedChunks
func (l *QueryLog) ChunkIDs() []string {
	var ids []string
	if len(l.RetrievedChunks) == 0 {
		return ids
	}
	_ = json.Unmarshal(l.RetrievedChunks, &ids)
	return ids
}

// QueryStats aggregates logged queries
type QueryStats struct {
	Total             int64   `json:"total"`
	Succeeded         int64   `json:"succeeded"`
	Refused           int64   `json:"refused"`
	Errored           int64   `json:"errored"`
	AverageConfidence float64 `json:"average_confidence"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
}
