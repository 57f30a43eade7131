package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/unify/internal/config"
	"github.com/zfogg/unify/internal/logger"
	"go.uber.org/zap"
)

// ErrDisabled is returned by every method of a nil *RedisClient so callers
// can treat a missing Redis like a cache miss.
var ErrDisabled = errors.New("redis is not configured")

// RedisClient wraps redis.Client. A nil *RedisClient is valid and behaves as
// an always-empty cache.
type RedisClient struct {
	client *redis.Client
}

var globalRedis *RedisClient

// NewRedisClient connects and pings, then installs the client as the global
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err, zap.String("address", addr))
		_ = client.Close()
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc
	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return rc, nil
}

// GetRedisClient returns the global client, nil when Redis is disabled
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Raw exposes the underlying client for callers that need pipelines
func (rc *RedisClient) Raw() *redis.Client {
	if rc == nil {
		return nil
	}
	return rc.client
}

func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if rc == nil {
		return "", ErrDisabled
	}
	return rc.client.Get(ctx, key).Result()
}

// SetEx stores a value with expiration
func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if rc == nil {
		return ErrDisabled
	}
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// GetJSON decodes a cached JSON value into dest. Misses return redis.Nil.
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := rc.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON encodes value as JSON and stores it with a TTL
func (rc *RedisClient) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if rc == nil {
		return ErrDisabled
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	if rc == nil {
		return ErrDisabled
	}
	if len(keys) == 0 {
		return nil
	}
	return rc.client.Del(ctx, keys...).Err()
}

// Exists returns how many of keys exist
func (rc *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	if rc == nil {
		return 0, ErrDisabled
	}
	return rc.client.Exists(ctx, keys...).Result()
}

// IncrWindow increments key and sets its expiry on first use. Used by the
// fixed-window rate limiter.
func (rc *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if rc == nil {
		return 0, 0, ErrDisabled
	}
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

// DeleteMatching removes keys matching pattern using SCAN
func (rc *RedisClient) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	if rc == nil {
		return 0, ErrDisabled
	}
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	if rc == nil {
		return ErrDisabled
	}
	return rc.client.Ping(ctx).Err()
}

// IsMiss reports whether err means "nothing cached"
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil) || errors.Is(err, ErrDisabled)
}
