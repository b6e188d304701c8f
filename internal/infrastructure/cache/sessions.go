package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grchub/internal/domain/models"
)

// RedisSessionStore keeps intake sessions in Redis with a per-key idle TTL.
// The TTL is refreshed on every Put, so an active conversation never expires
// mid-flow.
type RedisSessionStore struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(cache *RedisCache, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{cache: cache, ttl: ttl}
}

func sessionKey(key string) string {
	return "intake:session:" + key
}

// Get returns the session for key, or nil if absent or expired
func (s *RedisSessionStore) Get(ctx context.Context, key string) (*models.IntakeSession, error) {
	var session models.IntakeSession
	found, err := s.cache.GetJSON(ctx, sessionKey(key), &session)
	if err != nil {
		return nil, fmt.Errorf("failed to read intake session: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

// Put stores the session and refreshes its idle TTL
func (s *RedisSessionStore) Put(ctx context.Context, session *models.IntakeSession) error {
	return s.cache.SetJSON(ctx, sessionKey(session.Key), session, s.ttl)
}

// Delete removes the session
func (s *RedisSessionStore) Delete(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, sessionKey(key))
}

// MemorySessionStore is an in-process session store with lazy idle expiry.
// Used when the service runs without Redis, and in tests.
type MemorySessionStore struct {
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	session  *models.IntakeSession
	deadline time.Time
}

// NewMemorySessionStore creates an in-memory session store
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]memoryEntry),
	}
}

// Get returns the session for key, or nil if absent or expired
func (s *MemorySessionStore) Get(ctx context.Context, key string) (*models.IntakeSession, error) {
	s.mu.RLock()
	entry, ok := s.sessions[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.deadline) {
		s.mu.Lock()
		delete(s.sessions, key)
		s.mu.Unlock()
		return nil, nil
	}
	return entry.session, nil
}

// Put stores the session and refreshes its idle TTL
func (s *MemorySessionStore) Put(ctx context.Context, session *models.IntakeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key] = memoryEntry{
		session:  session,
		deadline: time.Now().Add(s.ttl),
	}
	return nil
}

// Delete removes the session
func (s *MemorySessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
