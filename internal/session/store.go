package session

import (
	"context"
	"maps"
	"sync"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/common"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
)

// State is derived from a Session, never stored.
type State string

const (
	StateCountryUnset State = "country_unset"
	StateInProgress   State = "in_progress"
	StateCompleted    State = "completed"
)

// Session is one user's walk through a country's questions.
type Session struct {
	ID        string
	UserID    string
	Country   string
	Cursor    int
	Questions []entity.Question
	// Responses caches this session's answers by question id.
	Responses map[string]entity.ResponseRecord
}

// State reports where the session stands.
func (s *Session) State() State {
	switch {
	case s.Country == "":
		return StateCountryUnset
	case s.Cursor >= len(s.Questions):
		return StateCompleted
	default:
		return StateInProgress
	}
}

func (s *Session) current() (entity.Question, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return entity.Question{}, false
	}
	return s.Questions[s.Cursor], true
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Responses = maps.Clone(s.Responses)
	if cp.Responses == nil {
		cp.Responses = map[string]entity.ResponseRecord{}
	}
	return &cp
}

// SessionStore keeps live sessions. Get returns ErrSessionNotFound for unknown ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore is a process-local SessionStore. Callers get copies.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]*Session{}}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, common.NewAppError("SESSION_NOT_FOUND", "Session not found.", common.ErrSessionNotFound)
	}
	return s.clone(), nil
}

func (m *MemorySessionStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.clone()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len is the number of live sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
