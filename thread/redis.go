package thread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roundtable-ai/roundtable/types"
)

// RedisStore is a Redis-based Store implementation for distributed
// deployments. Each session key maps to one Redis string; the optional TTL
// implements store-level expiry, which is the only deletion this subsystem
// knows about.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("thread: failed to connect to redis: %w", err)
	}

	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "roundtable:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "thread:",
		ttl:       config.TTL,
	}, nil
}

func (s *RedisStore) redisKey(key Key) string {
	return s.keyPrefix + key.String()
}

// Save upserts the blob under key. Backend failures are wrapped as
// STORE_FAILURE and surfaced.
func (s *RedisStore) Save(ctx context.Context, key Key, blob []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), blob, s.ttl).Err(); err != nil {
		return types.NewError(types.ErrStoreFailure, "redis save failed").WithCause(err)
	}
	return nil
}

// Load returns the blob under key, ErrNotFound for missing keys, and a
// STORE_FAILURE-wrapped error for anything else.
func (s *RedisStore) Load(ctx context.Context, key Key) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "redis load failed").WithCause(err)
	}
	return blob, nil
}

// Ping checks if the store is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
