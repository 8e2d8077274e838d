// Package locker provides a Redis-backed lock that serializes chat turns of
// the same session across processes.
package locker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/edgard/widgetbot/internal/config"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

const releaseTimeout = 2 * time.Second

// RedisLocker implements chat.Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

// New creates a RedisLocker from configuration.
func New(cfg config.RedisConfig, log *slog.Logger) (*RedisLocker, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("session lock redis addr is required")
	}
	if cfg.LockTTL <= 0 {
		return nil, errors.New("session lock requires a positive ttl")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(client, cfg.KeyPrefix, cfg.LockTTL, log)
}

// NewWithClient creates a RedisLocker around an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration, log *slog.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("session lock requires a redis client")
	}
	if ttl <= 0 {
		return nil, errors.New("session lock requires a positive ttl")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisLocker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log.With("component", "session_lock"),
	}, nil
}

// TryLock acquires key without waiting. The returned release func is safe to
// call once the ttl has expired and another holder has taken the key.
func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
	}
	if !ok {
		l.log.DebugContext(ctx, "Lock busy", "key", redisKey)
		return nil, false, nil
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.log.WarnContext(rctx, "Failed to release lock", "key", redisKey, "error", err)
		}
	}
	return release, true, nil
}

// Ping checks the Redis connection.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
