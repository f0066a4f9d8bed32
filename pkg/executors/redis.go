package executors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "weft:memory:"

// RedisKeyValueStore is a Redis-backed KeyValueStore. Values are stored as
// JSON; a zero TTL keeps them until deleted.
type RedisKeyValueStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKeyValueStore builds a store on the given client.
func NewRedisKeyValueStore(client *redis.Client, ttl time.Duration) *RedisKeyValueStore {
	return &RedisKeyValueStore{client: client, ttl: ttl}
}

func (s *RedisKeyValueStore) Get(ctx context.Context, key string) (any, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("redis get %q: decode: %w", key, err)
	}

	return value, true, nil
}

func (s *RedisKeyValueStore) Store(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis store %q: encode: %w", key, err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis store %q: %w", key, err)
	}

	return nil
}

func (s *RedisKeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}

	return nil
}

// RedisConversationStore is a Redis-backed ConversationStore built on lists.
type RedisConversationStore struct {
	client *redis.Client
}

// NewRedisConversationStore builds a conversation buffer on the given client.
func NewRedisConversationStore(client *redis.Client) *RedisConversationStore {
	return &RedisConversationStore{client: client}
}

func (s *RedisConversationStore) key(conversationID string) string {
	return redisKeyPrefix + "conversation:" + conversationID
}

func (s *RedisConversationStore) Append(ctx context.Context, conversationID string, message map[string]any) error {
	encoded, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("conversation append %q: encode: %w", conversationID, err)
	}

	if err := s.client.RPush(ctx, s.key(conversationID), encoded).Err(); err != nil {
		return fmt.Errorf("conversation append %q: %w", conversationID, err)
	}

	return nil
}

func (s *RedisConversationStore) Messages(ctx context.Context, conversationID string, limit int) ([]map[string]any, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := s.client.LRange(ctx, s.key(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conversation get %q: %w", conversationID, err)
	}

	messages := make([]map[string]any, 0, len(raw))

	for _, entry := range raw {
		var message map[string]any
		if err := json.Unmarshal([]byte(entry), &message); err != nil {
			return nil, fmt.Errorf("conversation get %q: decode: %w", conversationID, err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}

func (s *RedisConversationStore) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("conversation clear %q: %w", conversationID, err)
	}

	return nil
}
