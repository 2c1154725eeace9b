package services

import (
	"sync"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

// ResultSession holds the per-client mutable search state: the current
// result set and the most recently explained place, which becomes the
// default grounding context for chat follow-ups.
type ResultSession struct {
	mu          sync.RWMutex
	places      []entities.NormalizedPlace
	lastExplain *entities.ExplainPayload
}

// SetResults replaces the current result set.
func (s *ResultSession) SetResults(places []entities.NormalizedPlace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = places
}

// Results returns a copy of the current result set.
func (s *ResultSession) Results() []entities.NormalizedPlace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.NormalizedPlace, len(s.places))
	copy(out, s.places)
	return out
}

// SetLastExplain records the most recently built explain payload.
func (s *ResultSession) SetLastExplain(p entities.ExplainPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastExplain = &p
}

// LastExplain returns the most recent explain payload, or nil.
func (s *ResultSession) LastExplain() *entities.ExplainPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastExplain == nil {
		return nil
	}
	p := *s.lastExplain
	return &p
}

// SessionStore keeps result sessions keyed by client session id,
// creating them on first use. Sessions live for the process lifetime.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*ResultSession
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*ResultSession)}
}

// Get returns the session for id, creating it if needed.
func (s *SessionStore) Get(id string) *ResultSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &ResultSession{}
	s.sessions[id] = sess
	return sess
}
