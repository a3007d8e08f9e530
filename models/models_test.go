package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMode_Valid(t *testing.T) {
	tests := []struct {
		mode QueryMode
		want bool
	}{
		{QueryModeFullBook, true},
		{QueryModeSelection, true},
		{QueryMode(""), false},
		{QueryMode("chapter"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Valid())
		})
	}
}

func TestNewSelectionChunk(t *testing.T) {
	chunk := NewSelectionChunk("the highlighted passage")

	assert.NotEqual(t, uuid.Nil, chunk.ID)
	assert.NotEqual(t, uuid.Nil, chunk.DocumentID)
	assert.Equal(t, "the highlighted passage", chunk.Content)
	assert.Equal(t, 1.0, chunk.Similarity)
	assert.Equal(t, SelectionSourcePath, chunk.SourcePath)
	assert.Equal(t, 0, chunk.Ordinal)
}

func TestEvidence_Aggregates(t *testing.T) {
	evidence := Evidence{
		{Content: "abc", Similarity: 0.4},
		{Content: "défg", Similarity: 0.8},
		{Content: "", Similarity: 0.6},
	}

	assert.Equal(t, 0.8, evidence.MaxSimilarity())
	assert.InDelta(t, 0.6, evidence.AverageSimilarity(), 1e-9)
	assert.Equal(t, 7, evidence.TotalContentLength())
	assert.Equal(t, []string{"abc", "défg", ""}, evidence.Contents())
}

func TestEvidence_Empty(t *testing.T) {
	var evidence Evidence

	assert.Equal(t, 0.0, evidence.MaxSimilarity())
	assert.Equal(t, 0.0, evidence.AverageSimilarity())
	assert.Equal(t, 0, evidence.TotalContentLength())
	assert.Empty(t, evidence.Contents())
}

func TestValidationReport_Fail(t *testing.T) {
	report := NewValidationReport()
	require.True(t, report.Passed)
	assert.NotNil(t, report.ExternalKnowledgeFlags)

	report.Fail("low overlap")
	report.Fail("low score")

	assert.False(t, report.Passed)
	assert.Equal(t, []string{"low overlap", "low score"}, report.Issues)
}

func TestResponseConstructors(t *testing.T) {
	id := uuid.New()

	t.Run("success keeps sources", func(t *testing.T) {
		resp := NewSuccessResponse(id, "answer", []string{"ch1.md"}, 0.9)
		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, []string{"ch1.md"}, resp.Sources)
		assert.Equal(t, 0.9, resp.Confidence)
		assert.Equal(t, id, resp.QueryID)
	})

	t.Run("success with nil sources encodes empty list", func(t *testing.T) {
		resp := NewSuccessResponse(id, "answer", nil, 0.5)
		data, err := json.Marshal(resp)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"sources":[]`)
	})

	t.Run("refused", func(t *testing.T) {
		resp := NewRefusedResponse(id, "no context retrieved")
		assert.Equal(t, StatusRefused, resp.Status)
		assert.Empty(t, resp.Sources)
		assert.Zero(t, resp.Confidence)
	})

	t.Run("error", func(t *testing.T) {
		resp := NewErrorResponse(id, "generation failed")
		assert.Equal(t, StatusError, resp.Status)
		assert.Empty(t, resp.Sources)
		assert.Zero(t, resp.Confidence)
	})
}

func TestNewQueryLog(t *testing.T) {
	session := uuid.New()
	q := Query{Text: "what is a robot?", Mode: QueryModeSelection, Selection: "robots move", SessionID: &session}

	log := NewQueryLog(q)

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, &session, log.SessionID)
	assert.Equal(t, "what is a robot?", log.QueryText)
	assert.Equal(t, QueryModeSelection, log.QueryType)
	require.NotNil(t, log.SelectedText)
	assert.Equal(t, "robots move", *log.SelectedText)
	assert.JSONEq(t, "[]", string(log.RetrievedChunks))
	assert.False(t, log.CreatedAt.IsZero())
}

func TestNewQueryLog_NoSelection(t *testing.T) {
	log := NewQueryLog(Query{Text: "q", Mode: QueryModeFullBook})
	assert.Nil(t, log.SelectedText)
	assert.Nil(t, log.SessionID)
}

func TestQueryLog_Lifecycle(t *testing.T) {
	evidence := Evidence{
		{ID: uuid.New(), DocumentID: uuid.New(), SourcePath: "a.md", Similarity: 0.7},
		{ID: uuid.New(), DocumentID: uuid.New(), SourcePath: "b.md", Similarity: 0.5},
	}
	report := &ValidationReport{Passed: true, GroundingScore: 0.85}
	queryID := uuid.New()

	log := NewQueryLog(Query{Text: "q", Mode: QueryModeFullBook}).
		WithEvidence(evidence).
		WithGrounding(report)
	log.Complete(NewSuccessResponse(queryID, "answer", []string{"a.md", "b.md"}, 0.8), 1500*time.Millisecond)

	assert.Equal(t, queryID, log.ID)
	assert.Equal(t, StatusSuccess, log.ResponseStatus)
	assert.Equal(t, "answer", log.ResponseText)
	assert.Equal(t, 0.8, log.Confidence)
	assert.Equal(t, int64(1500), log.ProcessingTimeMs)
	assert.Equal(t, 0.85, log.GroundingScore)
	assert.True(t, log.GroundingPassed)

	assert.Equal(t, []string{evidence[0].ID.String(), evidence[1].ID.String()}, log.ChunkIDs())
	require.Len(t, log.Evidence, 2)
	assert.Equal(t, queryID, log.Evidence[1].QueryID)
	assert.Equal(t, 1, log.Evidence[1].Rank)
	assert.Equal(t, "b.md", log.Evidence[1].SourcePath)
}

func TestQueryLog_TableNames(t *testing.T) {
	assert.Equal(t, "queries", QueryLog{}.TableName())
	assert.Equal(t, "query_evidence", QueryEvidence{}.TableName())
}
