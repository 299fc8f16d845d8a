package store

import (
	"context"
	"fmt"

	pkgredis "github.com/grantscope/orgsite/pkg/redis"
)

const redisKeyPrefix = "orgsite:resolved:"

// RedisStore keeps resolved URLs as individual Redis keys, so writes for
// different names are independent by construction. Entries carry no TTL:
// staleness is defined by the blocklist, not by age.
type RedisStore struct {
	client *pkgredis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	url, err := s.client.Get(ctx, redisKeyPrefix+key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return url, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key, url string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, url, 0); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) ReadAll(ctx context.Context) (map[string]string, error) {
	entries, err := s.client.GetByPattern(ctx, redisKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	out := make(map[string]string, len(entries))
	for k, v := range entries {
		out[k[len(redisKeyPrefix):]] = v
	}
	return out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
