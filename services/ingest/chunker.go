package ingest

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
)

// ChunkID derives a chunk identifier from its document and position
func ChunkID(documentID uuid.UUID, index int) uuid.UUID {
	return uuid.NewSHA1(documentID, []byte(strconv.Itoa(index)))
}

// ChunkWords splits a document into windows of size words, each overlapping
// the previous one by overlap words. The final window may be shorter.
func ChunkWords(doc *models.Document, size, overlap int) []models.Chunk {
	words := strings.Fields(doc.Content)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	var chunks []models.Chunk
	for start := 0; ; start += step {
		end := min(start+size, len(words))
		index := len(chunks)
		chunks = append(chunks, models.Chunk{
			ID:         ChunkID(doc.ID, index),
			DocumentID: doc.ID,
			Index:      index,
			Content:    strings.Join(words[start:end], " "),
			TokenCount: end - start,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
