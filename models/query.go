package models

import (
	"github.com/google/uuid"
)

// QueryMode selects where evidence comes from
type QueryMode string

const (
	QueryModeFullBook  QueryMode = "full_book"       // Search the indexed corpus
	QueryModeSelection QueryMode = "selection_based" // Answer from caller-supplied text only
)

// Valid reports whether the mode is one the pipeline supports
func (m QueryMode) Valid() bool {
	return m == QueryModeFullBook || m == QueryModeSelection
}

// Query is a single question submitted to the pipeline
type Query struct {
	Text      string     `json:"query"`
	Mode      QueryMode  `json:"query_type"`
	Selection string     `json:"selected_text,omitempty"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

// IsSelection returns true for selection-based queries
func (q Query) IsSelection() bool {
	return q.Mode == QueryModeSelection
}
