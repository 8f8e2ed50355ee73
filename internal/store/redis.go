package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"FloatOverlay/internal/logger"
	"FloatOverlay/internal/retry"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "floatoverlay:position:"

// Redis keeps positions in redis so several sessions (or machines) sharing
// a state key restore the same placement.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to redisURL (e.g. "redis://localhost:6379/0"), retrying
// the initial ping a few times.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	p := retry.Budget(3, 200*time.Millisecond, nil)
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		logger.Warn("redis ping failed", "attempt", attempt, "err", err, "backoff", backoff)
	}
	if err := retry.DoVoid(ctx, p, retry.AlwaysRetry, func() error {
		return rdb.Ping(ctx).Err()
	}); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func redisKey(key string) string { return keyPrefix + key }

func (r *Redis) Load(ctx context.Context, key string) (Position, bool, error) {
	raw, err := r.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("redis get: %w", err)
	}
	var p Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return Position{}, false, fmt.Errorf("position decode: %w", err)
	}
	return p, true, nil
}

func (r *Redis) Save(ctx context.Context, key string, p Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, redisKey(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
