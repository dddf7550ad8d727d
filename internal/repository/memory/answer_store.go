// Package memory holds the ephemeral stores backing the chat pipeline: the
// last-answer memory used by rewrite/expand/simplify and the workspace stats
// cache feeding the override rules.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// StoredAnswer is the last assistant answer in a conversation, kept around so
// follow-ups like "say that differently" have something to work on.
type StoredAnswer struct {
	Text      string    `json:"text"`
	Intent    string    `json:"intent"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}

// AnswerStore remembers the most recent answer per conversation.
type AnswerStore interface {
	Save(ctx context.Context, userID, conversationID string, ans StoredAnswer) error
	Get(ctx context.Context, userID, conversationID string) (StoredAnswer, bool, error)
	Delete(ctx context.Context, userID, conversationID string) error
}

func answerKey(userID, conversationID string) string {
	return fmt.Sprintf("answer:%s:%s", userID, conversationID)
}

// CacheAnswerStore is the in-process implementation, used when no Redis URL
// is configured.
type CacheAnswerStore struct {
	cache *cache.Cache
}

func NewCacheAnswerStore(ttl time.Duration) *CacheAnswerStore {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &CacheAnswerStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (s *CacheAnswerStore) Save(_ context.Context, userID, conversationID string, ans StoredAnswer) error {
	s.cache.Set(answerKey(userID, conversationID), ans, cache.DefaultExpiration)
	return nil
}

func (s *CacheAnswerStore) Get(_ context.Context, userID, conversationID string) (StoredAnswer, bool, error) {
	if x, found := s.cache.Get(answerKey(userID, conversationID)); found {
		return x.(StoredAnswer), true, nil
	}
	return StoredAnswer{}, false, nil
}

func (s *CacheAnswerStore) Delete(_ context.Context, userID, conversationID string) error {
	s.cache.Delete(answerKey(userID, conversationID))
	return nil
}
