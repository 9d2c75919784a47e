package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
	"github.com/weiawesome/wes-live-chat/pkg/pubsub"
)

func newTestCache(t *testing.T) (*RedisTranscriptCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := pubsub.DefaultRedisConfig()
	cfg.Address = mr.Addr()

	c, err := NewRedisTranscriptCache(cfg, "chat:transcript")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, mr
}

func page(texts ...string) *TranscriptCacheResult {
	res := &TranscriptCacheResult{Messages: make([]domain.ChatMessageView, len(texts))}
	for i, text := range texts {
		res.Messages[i] = domain.ChatMessageView{ID: uint64(len(texts) - i), Room: "alice", Message: text}
	}
	return res
}

func TestRedisTranscriptCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "alice", 0, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisTranscriptCacheSetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	v, err := c.Version(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	require.NoError(t, c.Set(ctx, "alice", v, 40, page("b", "a"), time.Minute))
	require.NoError(t, c.Set(ctx, "alice", v, 10, page("b"), time.Minute))

	got, err := c.Get(ctx, "alice", v, 40)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "b", got.Messages[0].Message)

	got, err = c.Get(ctx, "alice", v, 10)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)

	_, err = c.Get(ctx, "bob", 0, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.True(t, mr.Exists("chat:transcript:room:alice:v0"))
}

func TestRedisTranscriptCacheInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "alice", 0, 40, page("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "alice", 0, 10, page("a"), time.Minute))
	require.NoError(t, c.Invalidate(ctx, "alice"))
	require.NoError(t, c.Invalidate(ctx, "never-cached"))

	v, err := c.Version(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	assert.Equal(t, "1", mustGet(t, mr, "chat:transcript:room:alice:version"))

	for _, limit := range []int{40, 10} {
		_, err := c.Get(ctx, "alice", v, limit)
		assert.ErrorIs(t, err, ErrCacheMiss, "limit=%d", limit)
	}
}

func TestRedisTranscriptCacheLateSetIsNotServed(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// A load reads the version, then a write invalidates, then the load's
	// page arrives.
	before, err := c.Version(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "alice"))
	require.NoError(t, c.Set(ctx, "alice", before, 40, page("old"), time.Minute))

	after, err := c.Version(ctx, "alice")
	require.NoError(t, err)
	require.NotEqual(t, before, after)

	_, err = c.Get(ctx, "alice", after, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisTranscriptCacheTTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "alice", 0, 40, page("a"), 10*time.Second))
	mr.FastForward(11 * time.Second)

	_, err := c.Get(ctx, "alice", 0, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisTranscriptCacheUnavailable(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Version(context.Background(), "alice")
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(context.Background(), "alice"))
}

func TestNoopCache(t *testing.T) {
	var c TranscriptCache = NoopCache{}
	ctx := context.Background()

	v, err := c.Version(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "alice", v, 40, page("a"), time.Minute))
	_, err = c.Get(ctx, "alice", v, 40)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Invalidate(ctx, "alice"))
	assert.NoError(t, c.Close())
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
