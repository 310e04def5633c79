package llm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T, inner Provider) (*CachedProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewCachedProvider(inner, rdb, time.Hour, zaptest.NewLogger(t)), mr
}

func TestCachedProvider_HitSkipsInnerCall(t *testing.T) {
	inner := &scriptedProvider{name: "model", results: []scriptedResult{
		{resp: okResponse("first")},
		{resp: okResponse("second")},
	}}
	p, _ := newTestCache(t, inner)

	req := &ChatRequest{
		Model:     "m",
		CacheSeed: 42,
		Messages:  []Message{{Role: RoleUser, Content: "Write a story about rocks"}},
	}

	resp1, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "first", resp1.FirstContent())

	resp2, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "first", resp2.FirstContent(), "second call must be served from cache")
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProvider_SeedChangesKey(t *testing.T) {
	inner := &scriptedProvider{name: "model", results: []scriptedResult{
		{resp: okResponse("first")},
		{resp: okResponse("second")},
	}}
	p, _ := newTestCache(t, inner)

	base := ChatRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	}

	reqA := base
	reqA.CacheSeed = 1
	reqB := base
	reqB.CacheSeed = 2

	respA, err := p.Completion(context.Background(), &reqA)
	require.NoError(t, err)
	respB, err := p.Completion(context.Background(), &reqB)
	require.NoError(t, err)

	assert.Equal(t, "first", respA.FirstContent())
	assert.Equal(t, "second", respB.FirstContent())
	assert.NotEqual(t, CacheKey(&reqA), CacheKey(&reqB))
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &scriptedProvider{name: "model", results: []scriptedResult{
		{err: &Error{Code: ErrUpstreamError, Retryable: true, Message: "502"}},
		{resp: okResponse("recovered")},
	}}
	p, _ := newTestCache(t, inner)

	req := &ChatRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}}

	_, err := p.Completion(context.Background(), req)
	require.Error(t, err)

	resp, err := p.Completion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.FirstContent())
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_RedisDownFallsThrough(t *testing.T) {
	inner := &scriptedProvider{name: "model", results: []scriptedResult{
		{resp: okResponse("direct")},
	}}
	p, mr := newTestCache(t, inner)
	mr.Close()

	resp, err := p.Completion(context.Background(), &ChatRequest{
		Model:    "m",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", resp.FirstContent())
}
