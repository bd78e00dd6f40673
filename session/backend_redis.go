package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores one Redis string per entry under a key prefix.
// Batches are applied inside MULTI/EXEC.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedisBackend wraps an existing client. The caller keeps ownership of
// the client; Close does not close it.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisBackend{redis: client, prefix: prefix}
}

// DialRedisBackend opens a client for addr and returns a backend that
// closes it on Close.
func DialRedisBackend(addr, password string, db int, prefix string) *RedisBackend {
	b := NewRedisBackend(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), prefix)
	b.owned = true
	return b
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + ":" + k
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.redis.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (r *RedisBackend) Apply(ctx context.Context, batch Batch) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range batch.Set {
			pipe.Set(ctx, r.key(k), v, 0)
		}
		if len(batch.Delete) > 0 {
			keys := make([]string, 0, len(batch.Delete))
			for _, k := range batch.Delete {
				keys = append(keys, r.key(k))
			}
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	if !r.owned {
		return nil
	}
	return r.redis.Close()
}
