package models

import (
	"github.com/google/uuid"
)

// SelectionSourcePath marks evidence that came from the caller's selection
const SelectionSourcePath = "user_selection"

// EvidenceChunk is one unit of source text with its relevance score.
// Chunks are created per request and never mutated afterwards.
type EvidenceChunk struct {
	ID         uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity_score"`
	SourcePath string    `json:"source_path"`
	Ordinal    int       `json:"chunk_index"`
}

// NewSelectionChunk wraps caller-supplied text as a perfect-match chunk
func NewSelectionChunk(text string) EvidenceChunk {
	return EvidenceChunk{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Content:    text,
		Similarity: 1.0,
		SourcePath: SelectionSourcePath,
		Ordinal:    0,
	}
}

// Evidence is the ordered chunk sequence for one request
type Evidence []EvidenceChunk

// MaxSimilarity returns the highest score, or 0 for empty evidence
func (e Evidence) MaxSimilarity() float64 {
	max := 0.0
	for i, c := range e {
		if i == 0 || c.Similarity > max {
			max = c.Similarity
		}
	}
	return max
}

// AverageSimilarity returns the mean score, or 0 for empty evidence
func (e Evidence) AverageSimilarity() float64 {
	if len(e) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range e {
		sum += c.Similarity
	}
	return sum / float64(len(e))
}

// TotalContentLength counts characters across all chunks
func (e Evidence) TotalContentLength() int {
	total := 0
	for _, c := range e {
		total += len([]rune(c.Content))
	}
	return total
}

// Contents returns chunk contents in order
func (e Evidence) Contents() []string {
	out := make([]string, 0, len(e))
	for _, c := range e {
		out = append(out, c.Content)
	}
	return out
}
