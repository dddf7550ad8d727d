package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAnswerStore keeps last answers in Redis so they survive restarts and
// are shared across instances.
type RedisAnswerStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAnswerStore connects and pings; a failing ping returns an error so
// the caller can fall back to the in-process store.
func NewRedisAnswerStore(url string, ttl time.Duration) (*RedisAnswerStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &RedisAnswerStore{client: client, ttl: ttl}, nil
}

func (s *RedisAnswerStore) Save(ctx context.Context, userID, conversationID string, ans StoredAnswer) error {
	data, err := json.Marshal(ans)
	if err != nil {
		return fmt.Errorf("marshal stored answer: %w", err)
	}
	return s.client.Set(ctx, answerKey(userID, conversationID), data, s.ttl).Err()
}

func (s *RedisAnswerStore) Get(ctx context.Context, userID, conversationID string) (StoredAnswer, bool, error) {
	data, err := s.client.Get(ctx, answerKey(userID, conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StoredAnswer{}, false, nil
		}
		return StoredAnswer{}, false, err
	}
	var ans StoredAnswer
	if err := json.Unmarshal(data, &ans); err != nil {
		return StoredAnswer{}, false, fmt.Errorf("unmarshal stored answer: %w", err)
	}
	return ans, true, nil
}

func (s *RedisAnswerStore) Delete(ctx context.Context, userID, conversationID string) error {
	return s.client.Del(ctx, answerKey(userID, conversationID)).Err()
}

func (s *RedisAnswerStore) Close() error {
	return s.client.Close()
}
