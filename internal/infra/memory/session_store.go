package memory

import (
	"sync"

	"opening-lines-quiz/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Save(session *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.sessions[session.ID()]
	s.sessions[session.ID()] = session
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
	return true
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
