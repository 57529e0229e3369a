package web_search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wayde1122/chat-box-code/internal/helpers"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

// Cache stores search results per backend and query.
type Cache interface {
	Get(ctx context.Context, backend Provider, query string) ([]models.Result, bool, error)
	Set(ctx context.Context, backend Provider, query string, results []models.Result) error
}

// RedisCache keeps results under search:{backend}:{sha256(query)}.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func CacheKey(backend Provider, query string) string {
	return fmt.Sprintf("search:%s:%s", backend, helpers.Fingerprint(query))
}

func (c *RedisCache) Get(ctx context.Context, backend Provider, query string) ([]models.Result, bool, error) {
	val, err := c.client.Get(ctx, CacheKey(backend, query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []models.Result
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, false, fmt.Errorf("decode cached results: %w", err)
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, backend Provider, query string, results []models.Result) error {
	b, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKey(backend, query), b, c.ttl).Err()
}
