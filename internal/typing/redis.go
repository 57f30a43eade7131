package typing

import (
	"context"
	"time"

	"github.com/zfogg/unify/internal/cache"
)

// RedisStore shares typing state across API instances. Keys expire in Redis
// so Purge has nothing to do.
type RedisStore struct {
	client *cache.RedisClient
	ttl    time.Duration
}

func NewRedisStore(client *cache.RedisClient) *RedisStore {
	return &RedisStore{client: client, ttl: TTL}
}

func redisKey(userID, partnerID string) string {
	return "typing:" + Key(userID, partnerID)
}

func (s *RedisStore) SetTyping(ctx context.Context, userID, partnerID string, isTyping bool) error {
	if isTyping {
		return s.client.SetEx(ctx, redisKey(userID, partnerID), "1", s.ttl)
	}
	return s.client.Del(ctx, redisKey(userID, partnerID))
}

func (s *RedisStore) IsTyping(ctx context.Context, userID, partnerID string) (bool, error) {
	n, err := s.client.Exists(ctx, redisKey(userID, partnerID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Purge(context.Context) (int, error) {
	return 0, nil
}

// NewStore picks Redis when a client is available and memory otherwise
func NewStore(client *cache.RedisClient) Store {
	if client != nil {
		return NewRedisStore(client)
	}
	return NewMemoryStore()
}
