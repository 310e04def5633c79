package llm

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig holds retry settings for the provider wrapper.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`    // maximum retry attempts, default 3
	InitialDelay  time.Duration `json:"initial_delay"`  // initial backoff delay, default 1s
	MaxDelay      time.Duration `json:"max_delay"`      // maximum backoff delay, default 30s
	BackoffFactor float64       `json:"backoff_factor"` // exponential backoff factor, default 2.0
	RetryableOnly bool          `json:"retryable_only"` // only retry errors marked Retryable
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		RetryableOnly: true,
	}
}

// RetryableProvider wraps a Provider with exponential-backoff retries.
type RetryableProvider struct {
	inner  Provider
	config RetryConfig
	logger *zap.Logger
}

var _ Provider = (*RetryableProvider)(nil)

// NewRetryableProvider creates a retrying wrapper around the given provider.
func NewRetryableProvider(inner Provider, config RetryConfig, logger *zap.Logger) *RetryableProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryableProvider{
		inner:  inner,
		config: config,
		logger: logger.With(zap.String("component", "retry_provider"), zap.String("provider", inner.Name())),
	}
}

func (p *RetryableProvider) Name() string { return p.inner.Name() }

func (p *RetryableProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion performs a chat completion, retrying transient errors.
func (p *RetryableProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.calculateDelay(attempt)
			p.logger.Debug("retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := p.inner.Completion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if p.config.RetryableOnly && !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *RetryableProvider) calculateDelay(attempt int) time.Duration {
	delay := float64(p.config.InitialDelay) * math.Pow(p.config.BackoffFactor, float64(attempt-1))
	if delay > float64(p.config.MaxDelay) {
		delay = float64(p.config.MaxDelay)
	}
	return time.Duration(delay)
}
