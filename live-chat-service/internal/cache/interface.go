package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-live-chat/live-chat-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type TranscriptCacheResult struct {
	Messages []domain.ChatMessageView `json:"messages"`
}

// TranscriptCache caches transcript pages per room under a room version.
// Invalidate moves the version, so pages stored for an older version are
// never read again, including pages whose Set arrives after the Invalidate.
//
// Callers read Version before loading from the store and pass the same
// version to Get and Set.
type TranscriptCache interface {
	Version(ctx context.Context, room string) (uint64, error)
	Get(ctx context.Context, room string, version uint64, limit int) (*TranscriptCacheResult, error)
	Set(ctx context.Context, room string, version uint64, limit int, result *TranscriptCacheResult, ttl time.Duration) error
	Invalidate(ctx context.Context, room string) error
	Close() error
}

// NoopCache is used when caching is disabled. Every Get is a miss.
type NoopCache struct{}

func (NoopCache) Version(context.Context, string) (uint64, error) { return 0, nil }

func (NoopCache) Get(context.Context, string, uint64, int) (*TranscriptCacheResult, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, string, uint64, int, *TranscriptCacheResult, time.Duration) error {
	return nil
}

func (NoopCache) Invalidate(context.Context, string) error { return nil }

func (NoopCache) Close() error { return nil }
