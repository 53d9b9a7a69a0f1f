package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is an Adapter for Redis-protocol servers.
//
// The client speaks RESP2 and never sends HELLO, so SSDB works as well as
// Redis. Retries are disabled: a failed round-trip is reported, not repeated.
type Redis struct {
	opts *redis.Options

	mu     sync.RWMutex
	client *redis.Client
}

// NewRedis returns an unconnected adapter for the server at addr.
func NewRedis(addr, password string, db int, timeout time.Duration) *Redis {
	opts := &redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		Protocol:   2,
		MaxRetries: -1,
	}
	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	return &Redis{opts: opts}
}

// Connect creates the client and verifies the server answers PING.
// Calling Connect on a connected adapter is a no-op.
func (r *Redis) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return nil
	}

	client := redis.NewClient(r.opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return unreachable("redis connect", err)
	}
	r.client = client
	return nil
}

// Get reads the value stored under key. redis.Nil is a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return nil, false, ErrNotConnected
	}

	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, callFailed(ctx, "redis get", err, redisConnLost)
	}
	return value, true, nil
}

// Set stores value under key without expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.client == nil {
		return ErrNotConnected
	}

	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return callFailed(ctx, "redis set", err, redisConnLost)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// redisConnLost reports whether err is a transport failure. An error reply
// from the server (WRONGTYPE, OOM, ...) means the connection still works.
func redisConnLost(err error) bool {
	var reply redis.Error
	return !errors.As(err, &reply)
}
