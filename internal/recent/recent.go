// Package recent tracks the last searches per user so the UI can offer
// quick re-runs. Entries are deduplicated (a repeated query moves to the
// front) and capped at a fixed length per user.
package recent

import (
	"context"
	"strings"
	"sync"

	"github.com/meridian-labs/catalog-search/pkg/redis"
)

// maxEntries is the per-user history cap.
const maxEntries = 10

// Store records and lists per-user search history.
type Store interface {
	Record(ctx context.Context, userID, query string) error
	List(ctx context.Context, userID string) ([]string, error)
	Clear(ctx context.Context, userID string) error
}

// RedisStore keeps histories in Redis lists, one per user, so history
// survives restarts and is shared across replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func historyKey(userID string) string {
	return "recent:" + userID
}

func (s *RedisStore) Record(ctx context.Context, userID, query string) error {
	query = strings.TrimSpace(query)
	if userID == "" || query == "" {
		return nil
	}
	return s.client.PushCapped(ctx, historyKey(userID), query, maxEntries)
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	entries, err := s.client.ListRange(ctx, historyKey(userID), 0, maxEntries-1)
	if err != nil {
		if redis.IsNilError(err) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.client.Del(ctx, historyKey(userID))
}

// MemoryStore is the in-process fallback used when Redis is not configured,
// and in tests. Same dedup and cap semantics as the Redis store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]string)}
}

func (s *MemoryStore) Record(ctx context.Context, userID, query string) error {
	query = strings.TrimSpace(query)
	if userID == "" || query == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.entries[userID]
	out := make([]string, 0, len(history)+1)
	out = append(out, query)
	for _, q := range history {
		if q != query {
			out = append(out, q)
		}
	}
	if len(out) > maxEntries {
		out = out[:maxEntries]
	}
	s.entries[userID] = out
	return nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.entries[userID]
	out := make([]string, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
