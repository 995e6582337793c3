package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/planmarks/internal/session"
)

// SessionStore keeps the open annotation sessions, at most one per source
// document.
type SessionStore struct {
	sessions   map[string]*session.Controller
	byDocument map[string]string
	mu         sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions:   make(map[string]*session.Controller),
		byDocument: make(map[string]string),
	}
}

func (s *SessionStore) Get(sessionID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, exists := s.sessions[sessionID]
	return c, exists
}

// ForDocument returns the session open on a source document.
func (s *SessionStore) ForDocument(documentPath string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDocument[documentPath]
	if !ok {
		return nil, false
	}
	c, exists := s.sessions[id]
	return c, exists
}

// Set stores a session, replacing any other session on the same document.
func (s *SessionStore) Set(c *session.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := c.Config().DocumentPath
	if old, ok := s.byDocument[doc]; ok && old != c.ID() {
		delete(s.sessions, old)
	}
	s.sessions[c.ID()] = c
	s.byDocument[doc] = c.ID()
}

// GetAll returns the sessions ordered by creation time.
func (s *SessionStore) GetAll() []*session.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*session.Controller, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Created().Before(result[j].Created())
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.sessions[sessionID]; ok {
		doc := c.Config().DocumentPath
		if s.byDocument[doc] == sessionID {
			delete(s.byDocument, doc)
		}
	}
	delete(s.sessions, sessionID)
}
