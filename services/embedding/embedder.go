// Package embedding turns text into fixed-dimension vectors through an
// OpenAI-compatible embeddings endpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/services/providers"
	"go.uber.org/zap"
)

// Embedder produces vectors for text. Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns the vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the length of every returned vector
	Dimension() int
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	logger    *zap.Logger
}

// NewOpenAIEmbedder creates an embedder from configuration
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, dimension int, logger *zap.Logger) *OpenAIEmbedder {
	client := providers.NewClient(providers.ProviderConfig{
		Name:    "embeddings",
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	return NewOpenAIEmbedderWithClient(client, cfg.Model, dimension, logger)
}

// NewOpenAIEmbedderWithClient wraps an existing client
func NewOpenAIEmbedderWithClient(client *openai.Client, model string, dimension int, logger *zap.Logger) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}
}

// Dimension implements Embedder
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed implements Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements Embedder
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		e.logger.Debug("embedding request failed",
			zap.String("model", e.model),
			zap.Int("inputs", len(texts)),
			zap.Error(err))
		return nil, providers.ClassifyError("embeddings", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings endpoint returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings endpoint returned out-of-range index %d", d.Index)
		}
		if e.dimension > 0 && len(d.Embedding) != e.dimension {
			return nil, services.NewDimensionMismatch(e.dimension, len(d.Embedding))
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("embeddings endpoint returned no vector for input %d", i)
		}
	}

	return out, nil
}

// IsPermanent reports whether an embedding error will not go away on retry
func IsPermanent(err error) bool {
	if errors.Is(err, services.ErrDimensionMismatch) {
		return true
	}
	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		return !pe.Retryable
	}
	return false
}
