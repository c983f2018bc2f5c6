package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"opening-lines-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own live timers, so they stay in a local map; Redis only carries a
// liveness marker holding the session's {mode, value} so other instances can
// see which players are mid-quiz.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(session *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.sessions[session.ID()]
	s.sessions[session.ID()] = session
	sel := session.Selection()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), string(sel.Mode)+":"+sel.Value, s.ttl).Err()
	return prev, ok
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) DeleteIf(id string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[id]; !ok || current != session {
		return false
	}
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
	return true
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
