package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedProvider wraps a Provider with a Redis-backed reply cache. The cache
// key covers the model, the cache seed, and the full message history, so a
// rerun with the same seed replays identical completions without new model
// calls. Cache failures are logged and fall through to the inner provider.
type CachedProvider struct {
	inner  Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider creates a caching wrapper. A zero ttl defaults to 1h.
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "cache_provider"), zap.String("provider", inner.Name())),
	}
}

func (p *CachedProvider) Name() string { return p.inner.Name() }

func (p *CachedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Completion returns the cached response when present, otherwise delegates
// and stores the result.
func (p *CachedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	key := CacheKey(req)

	if data, err := p.rdb.Get(ctx, key).Bytes(); err == nil {
		var resp ChatResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			p.logger.Debug("reply cache hit", zap.String("key", key))
			return &resp, nil
		}
		p.logger.Warn("reply cache entry corrupt, ignoring", zap.String("key", key), zap.Error(err))
	} else if err != redis.Nil {
		p.logger.Warn("reply cache read failed", zap.Error(err))
	}

	resp, err := p.inner.Completion(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := p.rdb.Set(ctx, key, data, p.ttl).Err(); err != nil {
			p.logger.Warn("reply cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}

// CacheKey derives a deterministic key from the request's model, seed, and
// message history.
func CacheKey(req *ChatRequest) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(req.Model)
	_ = enc.Encode(req.CacheSeed)
	_ = enc.Encode(req.Messages)
	_ = enc.Encode(req.Temperature)
	_ = enc.Encode(req.MaxTokens)
	return "llm:reply:" + hex.EncodeToString(h.Sum(nil))
}
