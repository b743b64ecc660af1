package qa

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sha1n/mcp-refqa-server/internal/domain"
)

// Session holds the questions extracted from one uploaded document and,
// after a search pass, their answers. Sessions live in memory only.
type Session struct {
	ID         string            `json:"id"`
	SourceName string            `json:"source_name"`
	Questions  []domain.Question `json:"questions"`
	CreatedAt  time.Time         `json:"created_at"`
	AnsweredAt *time.Time        `json:"answered_at,omitempty"`
}

// AnsweredCount returns how many questions carry an answer.
func (s Session) AnsweredCount() int {
	n := 0
	for _, q := range s.Questions {
		if q.Answered() {
			n++
		}
	}
	return n
}

func (s Session) clone() Session {
	s.Questions = slices.Clone(s.Questions)
	if s.AnsweredAt != nil {
		at := *s.AnsweredAt
		s.AnsweredAt = &at
	}
	return s
}

// SessionStore keeps sessions by id. It is safe for concurrent use and hands
// out copies, so callers never share question slices.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create stores a new session for questions and returns it.
func (s *SessionStore) Create(sourceName string, questions []domain.Question) Session {
	session := &Session{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		Questions:  slices.Clone(questions),
		CreatedAt:  s.now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session.clone()
}

// Get returns the session with the given id.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return session.clone(), nil
}

// SetAnswers replaces the questions of a session with their answered versions.
func (s *SessionStore) SetAnswers(id string, questions []domain.Question) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	at := s.now().UTC()
	session.Questions = slices.Clone(questions)
	session.AnsweredAt = &at
	return session.clone(), nil
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// List returns all sessions, oldest first.
func (s *SessionStore) List() []Session {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Session) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
