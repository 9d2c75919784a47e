package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-live-chat/pkg/pubsub"
)

// RedisTranscriptCache keeps a version counter per room and stores each
// version's pages as one hash, one field per page limit. Invalidate only
// increments the counter; pages of older versions expire with their TTL.
type RedisTranscriptCache struct {
	client *redis.Client
	prefix string
}

func NewRedisTranscriptCache(cfg pubsub.RedisConfig, prefix string) (*RedisTranscriptCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTranscriptCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisTranscriptCache) BuildKey(room string, version uint64) string {
	return fmt.Sprintf("%s:room:%s:v%d", c.prefix, room, version)
}

func (c *RedisTranscriptCache) BuildVersionKey(room string) string {
	return fmt.Sprintf("%s:room:%s:version", c.prefix, room)
}

func (c *RedisTranscriptCache) Version(ctx context.Context, room string) (uint64, error) {
	version, err := c.client.Get(ctx, c.BuildVersionKey(room)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get version from redis: %w", err)
	}
	return version, nil
}

func (c *RedisTranscriptCache) Get(ctx context.Context, room string, version uint64, limit int) (*TranscriptCacheResult, error) {
	data, err := c.client.HGet(ctx, c.BuildKey(room, version), strconv.Itoa(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result TranscriptCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisTranscriptCache) Set(ctx context.Context, room string, version uint64, limit int, result *TranscriptCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := c.BuildKey(room, version)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisTranscriptCache) Invalidate(ctx context.Context, room string) error {
	if err := c.client.Incr(ctx, c.BuildVersionKey(room)).Err(); err != nil {
		return fmt.Errorf("failed to bump version in redis: %w", err)
	}
	return nil
}

func (c *RedisTranscriptCache) Close() error {
	return c.client.Close()
}
