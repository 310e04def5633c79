// Package llm defines the narrow boundary to the model-call collaborator:
// a Provider that turns a message history into a reply, plus composable
// wrappers for retry, rate limiting, and response caching.
package llm

import (
	"context"
	"time"
)

// Unified LLM error codes, aligned with HTTP status and retryability.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"
	ErrModelOverloaded     ErrorCode = "LLM_MODEL_OVERLOADED"
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"
	ErrEmptyResponse       ErrorCode = "LLM_EMPTY_RESPONSE"
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
)

// Error is the structured provider error.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation context sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest carries the model configuration and message history for one
// completion. The engine passes it through unchanged.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	// CacheSeed participates in the reply cache key, so two runs with the
	// same seed and history replay the same completions.
	CacheSeed int64 `json:"cache_seed,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// FirstContent returns the content of the first choice, or "" if none.
func (r *ChatResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// HealthStatus reports the outcome of a provider health probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider is the uniform adapter interface implemented by concrete model
// backends and by the retry/rate-limit/cache wrappers.
type Provider interface {
	// Completion performs a synchronous chat completion.
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// HealthCheck performs a lightweight reachability probe.
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name returns the provider's unique identifier.
	Name() string
}
