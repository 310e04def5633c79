package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ChinmayBH/Agents-Evaluation/internal/tlsutil"
)

// OpenAICompatConfig configures an OpenAI-compatible chat provider.
// Most hosted model APIs (OpenAI, DeepSeek, Qwen, local gateways) speak
// this dialect, so a single client covers them all.
type OpenAICompatConfig struct {
	// ProviderName is the unique identifier, e.g. "openai".
	ProviderName string

	// APIKey authenticates against the provider's API.
	APIKey string

	// BaseURL is the API root, e.g. "https://api.openai.com".
	BaseURL string

	// DefaultModel is used when the request does not name a model.
	DefaultModel string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath defaults to "/v1/chat/completions".
	EndpointPath string

	// ModelsEndpoint defaults to "/v1/models"; used for health checks.
	ModelsEndpoint string
}

// OpenAICompatProvider is an HTTP client for OpenAI-compatible chat APIs.
type OpenAICompatProvider struct {
	cfg    OpenAICompatConfig
	client *http.Client
	logger *zap.Logger
}

var _ Provider = (*OpenAICompatProvider)(nil)

// NewOpenAICompat creates a provider for an OpenAI-compatible API.
func NewOpenAICompat(cfg OpenAICompatConfig, logger *zap.Logger) *OpenAICompatProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAICompatProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(timeout),
		logger: logger.With(zap.String("component", "llm_provider"), zap.String("provider", cfg.ProviderName)),
	}
}

// Name returns the provider name.
func (p *OpenAICompatProvider) Name() string { return p.cfg.ProviderName }

func (p *OpenAICompatProvider) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.cfg.BaseURL, "/"), path)
}

func (p *OpenAICompatProvider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// wire types for the OpenAI chat completions dialect.

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Seed        int64           `json:"seed,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int           `json:"index"`
		FinishReason string        `json:"finish_reason"`
		Message      openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Completion performs a non-streaming chat completion.
func (p *OpenAICompatProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.DefaultModel
	}

	body := openAIRequest{
		Model:       model,
		Messages:    make([]openAIMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
		Seed:        req.CacheSeed,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{
			Role:    string(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		code := ErrUpstreamError
		if ctx.Err() == context.DeadlineExceeded {
			code = ErrUpstreamTimeout
		}
		return nil, &Error{
			Code: code, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapHTTPError(resp.StatusCode, readErrorMessage(resp.Body), p.Name())
	}

	var oaResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, &Error{
			Code: ErrUpstreamError, Message: fmt.Sprintf("decode response: %v", err),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}

	result := &ChatResponse{
		ID:       oaResp.ID,
		Provider: p.Name(),
		Model:    oaResp.Model,
		Usage: ChatUsage{
			PromptTokens:     oaResp.Usage.PromptTokens,
			CompletionTokens: oaResp.Usage.CompletionTokens,
			TotalTokens:      oaResp.Usage.TotalTokens,
		},
	}
	if oaResp.Created != 0 {
		result.CreatedAt = time.Unix(oaResp.Created, 0)
	}
	for _, c := range oaResp.Choices {
		result.Choices = append(result.Choices, ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: Message{
				Role:    Role(c.Message.Role),
				Content: c.Message.Content,
				Name:    c.Message.Name,
			},
		})
	}
	if len(result.Choices) == 0 {
		return nil, &Error{
			Code: ErrEmptyResponse, Message: "provider returned no choices",
			HTTPStatus: http.StatusBadGateway, Provider: p.Name(),
		}
	}
	return result, nil
}

// HealthCheck verifies the provider is reachable.
func (p *OpenAICompatProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("%s health check failed: status=%d msg=%s", p.Name(), resp.StatusCode, readErrorMessage(resp.Body))
	}
	return &HealthStatus{Healthy: true, Latency: latency}, nil
}

// mapHTTPError maps an HTTP status to an *Error with the right retry flag.
func mapHTTPError(status int, msg, provider string) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Code: ErrUnauthorized, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusForbidden:
		return &Error{Code: ErrForbidden, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &Error{Code: ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusBadRequest:
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "quota") || strings.Contains(lower, "credit") || strings.Contains(lower, "limit") {
			return &Error{Code: ErrQuotaExceeded, Message: msg, HTTPStatus: status, Provider: provider}
		}
		return &Error{Code: ErrInvalidRequest, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &Error{Code: ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case 529: // model overloaded (used by some providers)
		return &Error{Code: ErrModelOverloaded, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		return &Error{Code: ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: status >= 500, Provider: provider}
	}
}

// readErrorMessage extracts a human-readable message from an error body.
// Falls back to the raw body when it is not the standard error envelope.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "unknown error"
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(data))
}
