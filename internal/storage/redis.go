package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Compile-time interface check.
var _ domain.ArtifactStore = (*RedisStore)(nil)

// DefaultRedisPrefix namespaces audio keys in a shared redis.
const DefaultRedisPrefix = "gridvoice:audio:"

// RedisStore keeps rendered audio in redis so several announcers can
// share one cache. A zero ttl stores entries without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration, log *logger.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, log: log}
}

// DialRedis connects to addr and checks the connection with PING.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	return DialRedisOptions(ctx, addr, "", 0)
}

// DialRedisOptions is DialRedis with a password and database number.
func DialRedisOptions(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Get fetches the entry for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Put stores data for key with the configured ttl.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	s.log.Debug("redis store: wrote %s (%d bytes, ttl=%s)", key, len(data), s.ttl)
	return nil
}
