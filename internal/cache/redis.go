package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// staleRetention is how long an entry outlives its TTL in Redis so it can still serve as a fallback
const staleRetention = 7 * 24 * time.Hour

// Redis is a Store backed by a Redis server
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the server described by a redis:// URL
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Redis{client: redis.NewClient(opts), prefix: "marketintel:"}, nil
}

// NewRedisFromClient wraps an existing client
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "marketintel:"}
}

// Ping verifies connectivity
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the entry for key, fresh or not
func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var e Entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode redis entry %s: %w", key, err)
	}
	return e, true, nil
}

// Set stores data for ttl; the key itself lives for ttl plus staleRetention
func (r *Redis) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	raw, err := msgpack.Marshal(Entry{Data: data, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode redis entry %s: %w", key, err)
	}
	expiry := ttl + staleRetention
	if expiry <= 0 {
		expiry = time.Second
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, expiry).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
