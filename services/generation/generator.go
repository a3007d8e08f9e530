// Package generation wraps the remote text-generation call.
package generation

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/upb/grounded-qa/config"
	"github.com/upb/grounded-qa/internal/retry"
	"github.com/upb/grounded-qa/services"
	"github.com/upb/grounded-qa/services/providers"
	"go.uber.org/zap"
)

// AppName is sent to OpenRouter in the attribution headers
const AppName = "grounded-qa"

// Params are the sampling parameters of one generation call
type Params struct {
	Temperature float32
	MaxTokens   int
}

// Generator produces text for a prompt. Implementations must be safe for concurrent use.
type Generator interface {
	// Generate returns the completion text, or a GenerationFailure
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	provider string
	retry    retry.Policy
	logger   *zap.Logger
}

// NewOpenAIGenerator creates a generator from configuration
func NewOpenAIGenerator(cfg config.GenerationConfig, logger *zap.Logger) *OpenAIGenerator {
	client := providers.NewClient(providers.ProviderConfig{
		Name:    "generation",
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: map[string]string{
			"HTTP-Referer": AppName,
			"X-Title":      AppName,
		},
	})
	policy := retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay}
	return NewOpenAIGeneratorWithClient(client, cfg.Model, policy, logger)
}

// NewOpenAIGeneratorWithClient wraps an existing client
func NewOpenAIGeneratorWithClient(client *openai.Client, model string, policy retry.Policy, logger *zap.Logger) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:   client,
		model:    model,
		provider: "generation",
		retry:    policy,
		logger:   logger,
	}
}

// ParamsFromConfig returns the configured sampling parameters
func ParamsFromConfig(cfg config.GenerationConfig) Params {
	return Params{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
}

// Generate implements Generator. Transient failures are retried; anything
// left over is returned as a GenerationFailure.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	var text string
	attempt := 0

	err := retry.Do(ctx, g.retry, func(ctx context.Context) error {
		attempt++
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: params.Temperature,
			MaxTokens:   params.MaxTokens,
		})
		if err != nil {
			pe := providers.ClassifyError(g.provider, err)
			g.logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("status_code", pe.StatusCode),
				zap.Bool("retryable", pe.Retryable),
				zap.Error(err))
			if !pe.Retryable {
				return retry.Permanent(pe)
			}
			return pe
		}

		if len(resp.Choices) == 0 {
			return retry.Permanent(errors.New("completion returned no choices"))
		}
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", services.NewGenerationFailure(err)
	}

	g.logger.Debug("generation completed",
		zap.String("model", g.model),
		zap.Int("attempts", attempt),
		zap.Int("response_length", len(text)))
	return text, nil
}
