package slotlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix     = "seminar:lock:"
	defaultRetryInterval = 50 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// releaseScript deletes the lock only while it still carries our token, so an
// expired holder cannot free a lock that someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a distributed lock built on SET NX PX with token-checked release.
type Redis struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	prefix        string
	logger        *slog.Logger
}

// RedisOption customises a Redis lock.
type RedisOption func(*Redis)

// WithRetryInterval sets how long a waiter sleeps between acquisition attempts.
func WithRetryInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

// WithKeyPrefix namespaces lock keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis wraps client. ttl bounds how long a crashed holder can keep a slot.
func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger, opts ...RedisOption) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Redis{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		prefix:        defaultKeyPrefix,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lock polls until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if r == nil || r.client == nil {
		return nil, errors.New("redis lock not configured")
	}

	name := r.prefix + key
	token := uuid.NewString()

	for {
		acquired, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if acquired {
			return r.unlocker(name, token), nil
		}

		timer := time.NewTimer(r.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (r *Redis) unlocker(name, token string) func() {
	done := false
	return func() {
		if done {
			return
		}
		done = true

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{name}, token).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to release slot lock", "key", name, "error", err)
		}
	}
}

// Ping checks connectivity to the lock server.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
