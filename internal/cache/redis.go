package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"QuantChannel/internal/model"
)

const redisKeyPrefix = "quantchannel:series:"

// RedisCache stores serialized price series in Redis with a TTL, for
// deployments where multiple scanner instances share one cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// NewRedisCacheWithClient wraps an existing client; used by tests.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(symbol, interval string) string {
	return redisKeyPrefix + symbol + ":" + interval
}

// Get reads the cached series. Missing keys and decode failures are misses;
// expiry is delegated to the Redis TTL.
func (c *RedisCache) Get(ctx context.Context, symbol, interval string) (*model.PriceSeries, bool) {
	data, err := c.client.Get(ctx, redisKey(symbol, interval)).Bytes()
	if err != nil {
		return nil, false
	}
	var series model.PriceSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, false
	}
	return &series, true
}

// Put stores the series with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, series *model.PriceSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}
	return c.client.Set(ctx, redisKey(series.Symbol, series.Interval), data, c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }
