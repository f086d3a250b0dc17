package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abdullah0035/itip-sub000/pkg/obscure"
)

// keyPrefix namespaces session blobs in redis.
const keyPrefix = "itip:web:session:"

// RedisStore persists obscure-encoded session blobs in redis with a sliding
// TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore creates a redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func (r *RedisStore) Load(ctx context.Context, sid string) (Session, bool) {
	blob, err := r.client.Get(ctx, keyPrefix+sid).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("session load failed",
				slog.String("session_id", sid),
				slog.String("error", err.Error()),
			)
		}
		return Initial(), false
	}

	var s Session
	if !obscure.DecodeInto(blob, &s) {
		// A blob this process cannot decode is treated as absent.
		r.logger.Warn("discarding undecodable session blob", slog.String("session_id", sid))
		return Initial(), false
	}
	return s, true
}

func (r *RedisStore) Save(ctx context.Context, sid string, s Session) error {
	blob, err := obscure.Encode(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+sid, blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sid string) error {
	if err := r.client.Del(ctx, keyPrefix+sid).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
