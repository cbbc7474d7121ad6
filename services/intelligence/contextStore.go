// File: services/intelligence/contextStore.go
package ai

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"smartcalendar/models"

	"github.com/go-redis/redis/v8"
)

const aiContextPrefix = "ai:ctx:"

// ContextStore keeps one conversation context per session.
type ContextStore interface {
	Get(ctx context.Context, sessionID string) (*models.AIContext, error)
	Set(ctx context.Context, sessionID string, aiCtx *models.AIContext) error
	Clear(ctx context.Context, sessionID string) error
}

type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func (s *RedisContextStore) Get(ctx context.Context, sessionID string) (*models.AIContext, error) {
	key := aiContextPrefix + sessionID
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return &models.AIContext{}, nil
	}
	if err != nil {
		return nil, err
	}
	var aiCtx models.AIContext
	if err := json.Unmarshal([]byte(data), &aiCtx); err != nil {
		return nil, err
	}
	return &aiCtx, nil
}

func (s *RedisContextStore) Set(ctx context.Context, sessionID string, aiCtx *models.AIContext) error {
	key := aiContextPrefix + sessionID
	b, err := json.Marshal(aiCtx)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, s.ttl).Err()
}

func (s *RedisContextStore) Clear(ctx context.Context, sessionID string) error {
	key := aiContextPrefix + sessionID
	return s.client.Del(ctx, key).Err()
}

// MemoryContextStore is a process-local ContextStore with the same TTL semantics.
type MemoryContextStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func NewMemoryContextStore(ttl time.Duration) *MemoryContextStore {
	return &MemoryContextStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryContextStore) Get(_ context.Context, sessionID string) (*models.AIContext, error) {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	if ok && s.ttl > 0 && s.now().After(e.expires) {
		delete(s.entries, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return &models.AIContext{}, nil
	}
	var aiCtx models.AIContext
	if err := json.Unmarshal(e.data, &aiCtx); err != nil {
		return nil, err
	}
	return &aiCtx, nil
}

func (s *MemoryContextStore) Set(_ context.Context, sessionID string, aiCtx *models.AIContext) error {
	b, err := json.Marshal(aiCtx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{data: b, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryContextStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// sessionLocks serialises turns per session id. Entries are dropped once no
// turn holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *sessionLocks) lock(sessionID string) (unlock func()) {
	s.mu.Lock()
	if s.locks == nil {
		s.locks = make(map[string]*sessionLock)
	}
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
