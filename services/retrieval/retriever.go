// Package retrieval turns a question into ranked evidence chunks.
package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/upb/grounded-qa/internal/observability"
	"github.com/upb/grounded-qa/internal/retry"
	"github.com/upb/grounded-qa/models"
	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/services/embedding"
	"github.com/upb/grounded-qa/services/vectorstore"
	"go.uber.org/zap"
)

// Retriever embeds questions and searches one collection.
// It holds no per-request state and is safe for concurrent use.
type Retriever struct {
	embedder   embedding.Embedder
	backend    vectorstore.Backend
	collection string
	retry      retry.Policy
	metrics    *observability.PipelineMetrics
	logger     *zap.Logger
}

// NewRetriever creates a retriever. metrics may be nil.
func NewRetriever(
	embedder embedding.Embedder,
	backend vectorstore.Backend,
	collection string,
	policy retry.Policy,
	metrics *observability.PipelineMetrics,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embedder:   embedder,
		backend:    backend,
		collection: collection,
		retry:      policy,
		metrics:    metrics,
		logger:     logger,
	}
}

// Search returns up to topK chunks ordered by similarity descending.
// Any failure of the embedder or the backend yields empty evidence.
func (r *Retriever) Search(ctx context.Context, query string, topK int) models.Evidence {
	var hits []vectorstore.Hit

	err := retry.Do(ctx, r.retry, func(ctx context.Context) error {
		vector, err := r.embedder.Embed(ctx, query)
		if err != nil {
			if embedding.IsPermanent(err) {
				return retry.Permanent(err)
			}
			r.logger.Debug("query embedding failed, retrying", zap.Error(err))
			return err
		}

		hits, err = r.backend.Search(ctx, r.collection, vector, topK)
		if err != nil {
			if isPermanentSearchError(err) {
				return retry.Permanent(err)
			}
			r.logger.Debug("similarity search failed, retrying", zap.Error(err))
		}
		return err
	})
	if err != nil {
		r.logger.Warn("retrieval unavailable, continuing without evidence",
			zap.String("collection", r.collection),
			zap.Error(err))
		if r.metrics != nil {
			r.metrics.RecordRetrievalFallback()
		}
		return models.Evidence{}
	}

	evidence := make(models.Evidence, 0, len(hits))
	for _, hit := range hits {
		chunk, err := ChunkFromHit(hit)
		if err != nil {
			r.logger.Warn("dropping malformed search hit",
				zap.String("hit_id", hit.ID),
				zap.Error(err))
			continue
		}
		evidence = append(evidence, chunk)
	}

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Similarity > evidence[j].Similarity
	})

	r.logger.Debug("retrieved evidence",
		zap.Int("hits", len(hits)),
		zap.Int("chunks", len(evidence)),
		zap.Float64("max_similarity", evidence.MaxSimilarity()))

	return evidence
}

// Select wraps caller-supplied text as evidence without touching the index
func (r *Retriever) Select(selection string) models.Evidence {
	return models.Evidence{models.NewSelectionChunk(selection)}
}

// isPermanentSearchError reports backend failures that a retry cannot fix
func isPermanentSearchError(err error) bool {
	return errors.Is(err, services.ErrCollectionMissing) ||
		errors.Is(err, services.ErrDimensionMismatch)
}
