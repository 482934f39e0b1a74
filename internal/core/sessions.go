// ABOUTME: SessionStore keeps bounded, sliding-expiration chat histories in memory
// ABOUTME: Expired sessions are reaped lazily on the next access to any session
package core

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/harper/folio/internal/models"
)

const (
	// DefaultSessionTTL is how long an untouched session survives
	DefaultSessionTTL = 120 * time.Minute
	// MaxSessionTurns bounds each session's history; oldest turns go first
	MaxSessionTurns = 20
)

type session struct {
	turns     []models.ChatTurn
	expiresAt time.Time
}

// SessionStore maps session ids to chat histories.
// A single mutex guards the whole map.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	maxTurns int
	now      func() time.Time
}

// SessionOption configures a SessionStore
type SessionOption func(*SessionStore)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// WithMaxTurns overrides the per-session turn cap
func WithMaxTurns(n int) SessionOption {
	return func(s *SessionStore) {
		if n > 0 {
			s.maxTurns = n
		}
	}
}

// NewSessionStore creates an empty store
func NewSessionStore(ttl time.Duration, opts ...SessionOption) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		maxTurns: MaxSessionTurns,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHistory returns a copy of the session's turns, oldest first.
// The session is created if absent and its expiry is pushed out by the TTL.
func (s *SessionStore) GetHistory(sessionID string) []models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.touch(sessionID).turns)
}

// AppendMessage adds a turn and drops the oldest turns beyond the cap
func (s *SessionStore) AppendMessage(sessionID string, role models.Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.touch(sessionID)
	sess.turns = append(sess.turns, models.ChatTurn{Role: role, Content: content})
	if over := len(sess.turns) - s.maxTurns; over > 0 {
		sess.turns = slices.Clone(sess.turns[over:])
	}
	return nil
}

// Len returns the number of live sessions, reaping expired ones first
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(s.now())
	return len(s.sessions)
}

// touch prunes expired sessions, then gets or creates sessionID and refreshes it.
// Callers must hold mu.
func (s *SessionStore) touch(sessionID string) *session {
	now := s.now()
	s.prune(now)

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.expiresAt = now.Add(s.ttl)
	return sess
}

func (s *SessionStore) prune(now time.Time) {
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
