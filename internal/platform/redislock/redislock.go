// Package redislock serializes session operations across server replicas.
package redislock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	DefaultTTL   = 30 * time.Second
	pollInterval = 25 * time.Millisecond
	keyPrefix    = "medical-assessment:lock:"
)

// release deletes the key only if this holder still owns it.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type Locker struct {
	c   *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// New returns a Locker whose locks expire after ttl if never released.
func New(c *redis.Client, ttl time.Duration, log *zap.Logger) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Locker{c: c, ttl: ttl, log: log.Named("redislock")}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	key = keyPrefix + key

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.c.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// The caller's ctx may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release.Run(ctx, l.c, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.log.Warn("release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
