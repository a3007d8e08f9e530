package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ProviderConfig holds common configuration for OpenAI-compatible endpoints
type ProviderConfig struct {
	// Name identifies the endpoint in logs and errors (e.g. "openrouter", "embeddings")
	Name string

	// APIKey for authentication
	APIKey string

	// BaseURL for the API
	BaseURL string

	// Timeout for each HTTP request
	Timeout time.Duration

	// Additional headers sent with every request
	Headers map[string]string
}

// NewClient builds a go-openai client for the endpoint. The client is safe for concurrent use.
func NewClient(cfg ProviderConfig) *openai.Client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}

	oaiCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	oaiCfg.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{headers: cfg.Headers, base: http.DefaultTransport},
	}
	return openai.NewClientWithConfig(oaiCfg)
}

type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Retryable indicates if the request can be retried
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// ClassifyError converts a go-openai call failure into a ProviderError.
// Rate limits, 5xx responses and network failures are retryable; other statuses are not.
func ClassifyError(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(provider, "CANCELLED", "request cancelled", 0, false, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(provider, "API_ERROR",
			fmt.Sprintf("%s returned status %d", provider, apiErr.HTTPStatusCode),
			apiErr.HTTPStatusCode, retryableStatus(apiErr.HTTPStatusCode), err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(provider, "HTTP_ERROR",
			fmt.Sprintf("%s returned status %d", provider, reqErr.HTTPStatusCode),
			reqErr.HTTPStatusCode, retryableStatus(reqErr.HTTPStatusCode), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewProviderError(provider, "NETWORK_ERROR", fmt.Sprintf("%s unreachable", provider), 0, true, err)
	}

	return NewProviderError(provider, "UNKNOWN", fmt.Sprintf("%s request failed", provider), 0, false, err)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
