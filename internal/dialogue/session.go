package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionState tracks where a booking dialogue stands.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionConfirmed SessionState = "confirmed"
	SessionFailed    SessionState = "failed"
)

// Turn is one utterance in a session history. Insertion order is replayed
// verbatim to the gateway each turn.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is one user's in-progress booking dialogue with one provider.
// Sessions are ephemeral: they live only for the duration of the dialogue
// and expire after the store TTL.
type Session struct {
	ID         string       `json:"id"`
	ProviderID string       `json:"provider_id"`
	History    []Turn       `json:"history"`
	State      SessionState `json:"state"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// SessionStore persists dialogue sessions between turns.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// InMemorySessionStore keeps sessions in process memory with TTL-based
// expiry. The default for single-instance deployments.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewInMemorySessionStore creates an in-memory store with the given TTL.
func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemorySessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save stores a copy of the session.
func (s *InMemorySessionStore) Save(ctx context.Context, session *Session) error {
	cp := *session
	cp.History = append([]Turn(nil), session.History...)
	cp.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	s.sessions[session.ID] = &cp
	s.sweepLocked()
	s.mu.Unlock()

	session.UpdatedAt = cp.UpdatedAt
	return nil
}

// Load returns a copy of the session or ErrSessionNotFound.
func (s *InMemorySessionStore) Load(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	stored, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(stored) {
		return nil, ErrSessionNotFound
	}
	cp := *stored
	cp.History = append([]Turn(nil), stored.History...)
	return &cp, nil
}

// Delete removes a session.
func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *InMemorySessionStore) expired(session *Session) bool {
	return s.now().Sub(session.UpdatedAt) > s.ttl
}

func (s *InMemorySessionStore) sweepLocked() {
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
		}
	}
}

// RedisSessionStore persists sessions in Redis so dialogues survive process
// restarts and can be shared across instances.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("dialogue: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{redis: client, ttl: ttl}
}

// Save persists the session under its key with the store TTL.
func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("dialogue: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("dialogue: failed to persist session: %w", err)
	}
	return nil
}

// Load fetches and decodes the session.
func (s *RedisSessionStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("dialogue: failed to load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("dialogue: failed to decode session: %w", err)
	}
	return &session, nil
}

// Delete removes the session key.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("dialogue: failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}
