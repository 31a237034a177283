package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the credential under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore stores the credential at "<namespace>:cookie".
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{client: client, key: namespace + ":cookie"}
}

// Key returns the Redis key in use.
func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	cred, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, storageErr("get", err)
	}
	return cred, present(cred), nil
}

func (s *RedisStore) Set(ctx context.Context, cred string) error {
	return storageErr("set", s.client.Set(ctx, s.key, cred, 0).Err())
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return storageErr("clear", s.client.Del(ctx, s.key).Err())
}
