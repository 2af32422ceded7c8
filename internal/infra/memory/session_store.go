package memory

import (
	"context"
	"sync"
	"time"

	"vocab-tiers-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions idle for longer than the TTL are treated as gone; every Get
// counts as activity. A non-positive TTL keeps them until deleted.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]*storedSession
}

type storedSession struct {
	live     *app.LiveSession
	lastSeen time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*storedSession),
	}
}

func (s *SessionStore) Save(_ context.Context, session *app.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweepLocked(now)
	s.sessions[session.ID()] = &storedSession{live: session, lastSeen: now}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*app.LiveSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.clock()
	if s.expired(stored, now) {
		delete(s.sessions, id)
		return nil, false
	}
	stored.lastSeen = now
	return stored.live, true
}

func (s *SessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len counts stored sessions, expired ones included until the next sweep.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(stored *storedSession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(stored.lastSeen) > s.ttl
}

// sweepLocked drops expired sessions; it runs on every Save.
func (s *SessionStore) sweepLocked(now time.Time) {
	for id, stored := range s.sessions {
		if s.expired(stored, now) {
			delete(s.sessions, id)
		}
	}
}
