package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the client backing the session credential store.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client for single credential reads and writes. Retries
// are disabled so a failing store surfaces on the first attempt, and the pool
// stays small since a session issues one command at a time. It does not dial
// until first use.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		DialTimeout:     2 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		MaxRetries:      -1,
		PoolSize:        2,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	return &Redis{Client: client}
}

// Healthy reports whether a PING succeeds.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
