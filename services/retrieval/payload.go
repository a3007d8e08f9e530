package retrieval

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/services/vectorstore"
)

// Payload keys written by ingestion and read back here
const (
	PayloadChunkID     = "chunk_id"
	PayloadDocumentID  = "document_id"
	PayloadContent     = "content"
	PayloadSourcePath  = "source_path"
	PayloadChunkIndex  = "chunk_index"
	PayloadContentType = "content_type"
	PayloadTokenCount  = "token_count"
)

// ChunkFromHit maps a raw search hit into a typed chunk. Missing fields get
// deterministic defaults; only a content value of the wrong type is an error.
func ChunkFromHit(hit vectorstore.Hit) (models.EvidenceChunk, error) {
	content, ok, err := stringField(hit.Payload, PayloadContent)
	if err != nil {
		return models.EvidenceChunk{}, err
	}
	if !ok {
		content = ""
	}

	sourcePath, _, err := stringField(hit.Payload, PayloadSourcePath)
	if err != nil {
		sourcePath = ""
	}

	return models.EvidenceChunk{
		ID:         chunkID(hit),
		DocumentID: documentID(hit),
		Content:    content,
		Similarity: clamp01(hit.Score),
		SourcePath: sourcePath,
		Ordinal:    chunkIndex(hit.Payload[PayloadChunkIndex]),
	}, nil
}

func stringField(payload map[string]any, key string) (string, bool, error) {
	raw, exists := payload[key]
	if !exists || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("payload field %q has type %T, want string", key, raw)
	}
	return s, true, nil
}

func chunkID(hit vectorstore.Hit) uuid.UUID {
	if s, ok := hit.Payload[PayloadChunkID].(string); ok {
		if id, err := uuid.Parse(s); err == nil {
			return id
		}
	}
	if id, err := uuid.Parse(hit.ID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("chunk:"+hit.ID))
}

func documentID(hit vectorstore.Hit) uuid.UUID {
	s, ok := hit.Payload[PayloadDocumentID].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte("document:"+hit.ID))
	}
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(s))
}

func chunkIndex(raw any) int {
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return floatIndex(float64(v))
	case float64:
		return floatIndex(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return floatIndex(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func floatIndex(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func clamp01(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
