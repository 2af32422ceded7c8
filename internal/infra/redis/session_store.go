package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"vocab-tiers-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Live sessions stay in a local map so subscribers share one in-process
// session; Redis holds a liveness key per session whose TTL bounds how long
// an idle quiz survives, and which any instance can inspect.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.LiveSession),
	}
}

// Save also drops local sessions whose liveness key has expired, so abandoned
// quizzes do not accumulate in memory.
func (s *SessionStore) Save(ctx context.Context, session *app.LiveSession) error {
	if err := s.client.Set(ctx, s.key(session.ID()), session.UserID(), s.ttl).Err(); err != nil {
		return err
	}
	s.sweep(ctx)
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	return nil
}

// Get refreshes the liveness TTL on every hit. A session whose key expired is
// dropped locally; a Redis error keeps it, since the key may still be there.
func (s *SessionStore) Get(ctx context.Context, id string) (*app.LiveSession, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	alive, err := s.alive(ctx, id)
	if err != nil {
		return session, true
	}
	if !alive {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, false
	}
	return session, true
}

func (s *SessionStore) alive(ctx context.Context, id string) (bool, error) {
	if s.ttl > 0 {
		return s.client.Expire(ctx, s.key(id), s.ttl).Result()
	}
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	return n == 1, err
}

// sweep checks every local session's key in one round trip. Nothing is
// dropped when Redis cannot answer.
func (s *SessionStore) sweep(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	if len(ids) == 0 {
		return
	}

	cmds := make([]*redis.IntCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.Exists(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return
	}
	s.mu.Lock()
	for i, id := range ids {
		if cmds[i].Val() == 0 {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
}

// Len reports how many sessions are held locally.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	// best-effort liveness cleanup
	_ = s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "vocab:quiz:session:" + id
}
