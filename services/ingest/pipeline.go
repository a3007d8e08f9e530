package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/services/embedding"
	"github.com/upb/grounded-qa/services/retrieval"
	"github.com/upb/grounded-qa/services/vectorstore"
	"go.uber.org/zap"
)

// FileResult describes one ingested file
type FileResult struct {
	Path       string `json:"path"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// Result summarizes an ingest run
type Result struct {
	Files   []FileResult `json:"files"`
	Chunks  int          `json:"chunks"`
	Skipped int          `json:"skipped"`
	Errors  []string     `json:"errors,omitempty"`
}

// Pipeline embeds corpus files into one collection
type Pipeline struct {
	embedder   embedding.Embedder
	backend    vectorstore.Backend
	collection string
	cfg        config.IngestConfig
	logger     *zap.Logger
}

// NewPipeline creates an ingest pipeline
func NewPipeline(embedder embedding.Embedder, backend vectorstore.Backend, collection string, cfg config.IngestConfig, logger *zap.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".md", ".txt", ".pdf"}
	}
	return &Pipeline{
		embedder:   embedder,
		backend:    backend,
		collection: collection,
		cfg:        cfg,
		logger:     logger,
	}
}

// Watches reports whether path has an extension this pipeline ingests
func (p *Pipeline) Watches(path string) bool {
	return slices.Contains(p.cfg.Extensions, strings.ToLower(filepath.Ext(path)))
}

// IngestPath ingests a single file or every matching file under a directory.
// A failing file is recorded in the result and does not stop the walk.
func (p *Pipeline) IngestPath(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := vectorstore.EnsureCollection(ctx, p.backend, p.collection, p.embedder.Dimension(), p.logger); err != nil {
		return nil, err
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(file string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && p.Watches(file) {
				files = append(files, file)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
	} else {
		files = []string{path}
	}

	result := &Result{Files: []FileResult{}}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fr, err := p.IngestFile(ctx, file)
		if err != nil {
			p.logger.Error("failed to ingest file", zap.String("path", file), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		if fr.Chunks == 0 {
			result.Skipped++
			continue
		}
		result.Files = append(result.Files, *fr)
		result.Chunks += fr.Chunks
	}

	p.logger.Info("ingest completed",
		zap.String("path", path),
		zap.Int("files", len(result.Files)),
		zap.Int("chunks", result.Chunks),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// IngestFile loads, chunks, embeds and upserts one file. The collection must exist.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*FileResult, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	chunks := ChunkWords(doc, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	fr := &FileResult{Path: doc.SourcePath, DocumentID: doc.ID.String()}
	if len(chunks) == 0 {
		p.logger.Debug("skipping empty document", zap.String("path", path))
		return fr, nil
	}

	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		batch := chunks[start:min(start+p.cfg.BatchSize, len(chunks))]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks of %s: %w", path, err)
		}

		points := make([]vectorstore.Point, len(batch))
		for i, c := range batch {
			points[i] = vectorstore.Point{
				ID:      c.ID.String(),
				Vector:  vectors[i],
				Payload: chunkPayload(doc, c),
			}
		}

		if err := p.backend.Upsert(ctx, p.collection, points); err != nil {
			return nil, fmt.Errorf("failed to store chunks of %s: %w", path, err)
		}
		fr.Chunks += len(batch)
	}

	p.logger.Debug("document ingested",
		zap.String("path", doc.SourcePath),
		zap.String("document_id", doc.ID.String()),
		zap.Int("chunks", fr.Chunks))
	return fr, nil
}

func chunkPayload(doc *models.Document, c models.Chunk) map[string]any {
	return map[string]any{
		retrieval.PayloadChunkID:     c.ID.String(),
		retrieval.PayloadDocumentID:  doc.ID.String(),
		retrieval.PayloadContent:     c.Content,
		retrieval.PayloadSourcePath:  doc.SourcePath,
		retrieval.PayloadChunkIndex:  c.Index,
		retrieval.PayloadContentType: doc.ContentType,
		retrieval.PayloadTokenCount:  c.TokenCount,
	}
}
