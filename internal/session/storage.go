package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates that the storage holds no value for a key.
var ErrNotFound = errors.New("session: not found")

// Storage is the durable side of a Store.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisStorage keeps values in Redis with a sliding TTL.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage constructs a RedisStorage. Every key is stored under prefix.
func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

// Get implements Storage.
func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: redis get: %w", err)
	}
	return data, nil
}

// Set implements Storage.
func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Delete implements Storage.
func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// Touch extends the TTL of key. Missing keys are ignored.
func (s *RedisStorage) Touch(ctx context.Context, key string) error {
	if err := s.client.Expire(ctx, s.prefix+key, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis expire: %w", err)
	}
	return nil
}
