// Package ingest loads corpus files, splits them into chunks and writes the
// embedded chunks to the vector collection.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/grounded-qa/models"
	"rsc.io/pdf"
)

// ContentTypeFor maps a file extension to a content type, or "" when unsupported
func ContentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return models.ContentTypeMarkdown
	case ".txt":
		return models.ContentTypeText
	case ".pdf":
		return models.ContentTypePDF
	default:
		return ""
	}
}

// DocumentID derives the document identifier from its content hash, so
// re-loading unchanged content yields the same id.
func DocumentID(contentHash string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("sha256:"+contentHash))
}

// LoadFile reads one corpus file and normalizes its whitespace
func LoadFile(path string) (*models.Document, error) {
	contentType := ContentTypeFor(path)
	if contentType == "" {
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	var raw string
	var err error
	if contentType == models.ContentTypePDF {
		raw, err = extractPDFText(path)
	} else {
		var b []byte
		b, err = os.ReadFile(path)
		raw = string(b)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	content := strings.Join(strings.Fields(raw), " ")
	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	return &models.Document{
		ID:          DocumentID(hash),
		Title:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourcePath:  filepath.ToSlash(path),
		ContentType: contentType,
		Content:     content,
		ContentHash: hash,
		LoadedAt:    time.Now(),
	}, nil
}

func extractPDFText(path string) (string, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, t := range p.Content().Text {
			sb.WriteString(strings.ReplaceAll(t.S, "\x00", ""))
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
