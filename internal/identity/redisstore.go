package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the identity record in a Redis hash so that ephemeral
// CI workspaces can share one identity. The hash mirrors the properties
// file: fields package.name and generated.time.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore creates a store for the given namespace.
// Returns an error if namespace is empty.
func NewRedisStore(opts *redis.Options, namespace string) (*RedisStore, error) {
	if strings.TrimSpace(namespace) == "" {
		return nil, fmt.Errorf("redis namespace cannot be empty")
	}
	return &RedisStore{
		rdb:       redis.NewClient(opts),
		namespace: namespace,
	}, nil
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(url, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisStore(opts, namespace)
}

// IdentityKey returns the Redis key for a namespace's identity hash.
func IdentityKey(namespace string) string {
	return fmt.Sprintf("dynpkg:%s:identity", namespace)
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Location returns the Redis key, prefixed with the server address.
func (s *RedisStore) Location() string {
	return fmt.Sprintf("redis://%s/%s", s.rdb.Options().Addr, IdentityKey(s.namespace))
}

// Load reads the identity hash. A missing key, or a hash without a
// package.name value, yields a nil record. An identity that is not a legal
// package name yields a StoreCorruptError.
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	fields, err := s.rdb.HGetAll(ctx, IdentityKey(s.namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read identity from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(fields) == 0 {
		return nil, nil
	}

	name := strings.TrimSpace(fields[KeyPackageName])
	if name == "" {
		return nil, nil
	}
	if !ValidPackageName(name) {
		return nil, &StoreCorruptError{
			Location: s.Location(),
			Cause:    fmt.Errorf("%s %q is not a valid package name", KeyPackageName, name),
		}
	}

	created := fields[KeyGeneratedTime]
	return &Record{
		Identity:    name,
		CreatedAt:   parseCreated(created),
		CreatedText: created,
	}, nil
}

// Save replaces the identity hash in a single transaction.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	key := IdentityKey(s.namespace)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]interface{}{
			KeyPackageName:   rec.Identity,
			KeyGeneratedTime: rec.Created(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write identity to Redis: %w", err)
	}
	return nil
}

// Clear deletes the identity hash.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, IdentityKey(s.namespace)).Err(); err != nil {
		return fmt.Errorf("failed to delete identity from Redis: %w", err)
	}
	return nil
}
