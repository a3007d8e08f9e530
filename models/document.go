package models

import (
	"time"

	"github.com/google/uuid"
)

// Content types accepted by the ingest loader
const (
	ContentTypeMarkdown = "markdown"
	ContentTypeText     = "text"
	ContentTypePDF      = "pdf"
)

// Document is one source file of the corpus
type Document struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	SourcePath  string    `json:"source_path"`
	ContentType string    `json:"content_type"`
	Content     string    `json:"-"`
	ContentHash string    `json:"content_hash"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Chunk is a segment of a document stored in the vector collection
type Chunk struct {
	ID         uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Index      int       `json:"chunk_index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
}
