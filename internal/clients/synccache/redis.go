package synccache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wavenote/wavenote-backend/internal/logger"
)

type redisKV struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisKV builds the production KV from REDIS_ADDR-style settings.
// Entries expire after ttl (0 means no expiry) so a wiped provider account
// does not pin a stale payload forever.
func NewRedisKV(log *logger.Logger, addr, password string, ttl time.Duration) (KV, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 3 * time.Second,
	})
	return &redisKV{log: log.With("client", "SyncCacheKV"), rdb: rdb, ttl: ttl}, nil
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, r.ttl).Err()
}
