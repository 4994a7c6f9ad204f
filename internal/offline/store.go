// Package offline holds the local snapshot store, the durable mutation
// queue, and the connectivity monitor that together let the application
// keep working while the remote store is unreachable.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Cache keys for persisted snapshots and the mutation queue.
const (
	KeySuppliers    = "offline:suppliers"
	KeyTransactions = "offline:transactions"
	KeyUsers        = "offline:users"
	KeySettings     = "offline:settings"
	KeySyncQueue    = "offline:sync_queue"
	KeyDeadLetter   = "offline:dead_letter"
)

// Store is the durable key-value cache under the offline engine. Snapshots
// are whole-value replacements; there is no partial write mode.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisStore persists snapshots in a local Redis instance so they survive
// process restarts.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a Redis client as a Store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// SaveJSON persists a full snapshot under key, replacing prior content.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data)
}

// LoadJSON returns the last snapshot stored under key. A missing key, an
// unreachable store, or a corrupt payload all degrade to the empty slice;
// the cache never fails a read.
func LoadJSON[T any](ctx context.Context, s Store, key string) []T {
	data, err := s.Get(ctx, key)
	if err != nil {
		slog.Debug("offline: cache read failed", slog.String("key", key), slog.Any("error", err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// LoadJSONValue loads a single-record snapshot (the settings singleton).
// The second return is false when no usable snapshot exists.
func LoadJSONValue[T any](ctx context.Context, s Store, key string) (T, bool) {
	var out T
	data, err := s.Get(ctx, key)
	if err != nil || len(data) == 0 {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}
