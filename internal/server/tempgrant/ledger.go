// Package tempgrant tracks outstanding pre-2FA temp tokens so each one can
// complete a login at most once.
package tempgrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrGrantNotFound = errors.New("temp grant not found or already used")
	ErrBackend       = errors.New("temp grant backend unavailable")
)

// Ledger records temp-token grants and hands each out once.
type Ledger interface {
	Record(ctx context.Context, jti, userID string, ttl time.Duration) error
	// Consume removes the grant and returns its user id. Only one of several
	// concurrent callers succeeds; the rest get ErrGrantNotFound.
	Consume(ctx context.Context, jti string) (string, error)
}

const keyPrefix = "tg"

type RedisLedger struct {
	redis redis.UniversalClient
}

func NewRedisLedger(client redis.UniversalClient) *RedisLedger {
	return &RedisLedger{redis: client}
}

func key(jti string) string {
	return keyPrefix + ":" + jti
}

func (l *RedisLedger) Record(ctx context.Context, jti, userID string, ttl time.Duration) error {
	if err := l.redis.Set(ctx, key(jti), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (l *RedisLedger) Consume(ctx context.Context, jti string) (string, error) {
	userID, err := l.redis.GetDel(ctx, key(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrGrantNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return userID, nil
}
