package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/models"
)

const (
	fieldStart = "start"
	fieldCount = "count"
	maxTxRetry = 100
)

// RedisStore keeps quota windows in Redis hashes so several server processes share one quota.
// Updates use WATCH/MULTI optimistic transactions.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to the server in cfg and verifies it with PING.
func NewRedisStore(ctx context.Context, cfg *config.RateLimitConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.Window), nil
}

// NewRedisStoreWithClient wraps an existing client. Keys expire after window so abandoned
// clients do not accumulate.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, window time.Duration) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: window}
}

// UpdateQuota reads, applies fn and writes back inside a WATCH transaction, retrying on conflict.
func (s *RedisStore) UpdateQuota(ctx context.Context, clientID string, fn func(w models.QuotaWindow, found bool) models.QuotaWindow) (models.QuotaWindow, error) {
	key := s.keyPrefix + clientID
	var result models.QuotaWindow
	txf := func(tx *redis.Tx) error {
		w, found, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		next := fn(w, found)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldStart, next.Start.UnixNano(), fieldCount, next.Count)
			if s.ttl > 0 {
				pipe.PExpireAt(ctx, key, next.Start.Add(s.ttl))
			}
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}
	for i := 0; i < maxTxRetry; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.QuotaWindow{}, fmt.Errorf("update quota: %w", err)
	}
	return models.QuotaWindow{}, fmt.Errorf("update quota: too much contention on %s", key)
}

// GetQuota returns the stored window of clientID.
func (s *RedisStore) GetQuota(ctx context.Context, clientID string) (models.QuotaWindow, bool, error) {
	return s.read(ctx, s.client, s.keyPrefix+clientID)
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func (s *RedisStore) read(ctx context.Context, c hashReader, key string) (models.QuotaWindow, bool, error) {
	vals, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return models.QuotaWindow{}, false, fmt.Errorf("read quota: %w", err)
	}
	if len(vals) == 0 {
		return models.QuotaWindow{}, false, nil
	}
	start, err := strconv.ParseInt(vals[fieldStart], 10, 64)
	if err != nil {
		return models.QuotaWindow{}, false, fmt.Errorf("read quota: bad start: %w", err)
	}
	count, err := strconv.Atoi(vals[fieldCount])
	if err != nil {
		return models.QuotaWindow{}, false, fmt.Errorf("read quota: bad count: %w", err)
	}
	return models.QuotaWindow{Start: time.Unix(0, start), Count: count}, true, nil
}
