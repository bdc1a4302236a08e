package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCarryStore keeps Carry in a Redis server reached through go-redis.
type RedisCarryStore struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

func NewRedisCarryStore(client redis.Cmdable, keyPrefix string, ttl time.Duration) (*RedisCarryStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = defaultStoreKeyPrefix
	}
	return &RedisCarryStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}, nil
}

func (s *RedisCarryStore) Load(ctx context.Context, sessionID string) (Carry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Carry{}, ErrInvalidSession
	}
	raw, err := s.client.Get(ctx, carryKey(s.keyPrefix, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Carry{}, ErrStateNotFound
	}
	if err != nil {
		return Carry{}, fmt.Errorf("redis get carry: %w", err)
	}
	return decodeCarry(raw)
}

func (s *RedisCarryStore) Save(ctx context.Context, sessionID string, carry Carry) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if !carry.Awaiting() {
		return s.Delete(ctx, sessionID)
	}
	payload, err := encodeCarry(carry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, carryKey(s.keyPrefix, sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set carry: %w", err)
	}
	return nil
}

func (s *RedisCarryStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if err := s.client.Del(ctx, carryKey(s.keyPrefix, sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del carry: %w", err)
	}
	return nil
}
