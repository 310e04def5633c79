package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider with a client-side token bucket so a
// chat run cannot exceed the upstream rate limit even when replies are fast.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Provider = (*RateLimitedProvider)(nil)

// NewRateLimitedProvider creates a rate-limiting wrapper. rps <= 0 disables
// limiting; burst < 1 is coerced to 1.
func NewRateLimitedProvider(inner Provider, rps float64, burst int, logger *zap.Logger) *RateLimitedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: limiter,
		logger:  logger.With(zap.String("component", "ratelimit_provider"), zap.String("provider", inner.Name())),
	}
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

func (p *RateLimitedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion blocks until the limiter grants a slot, then delegates.
func (p *RateLimitedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return p.inner.Completion(ctx, req)
}
