package entities

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one live conversation. It exclusively owns its History; nothing
// outlives the session and nothing is shared across sessions.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	history *History
	mu      sync.Mutex
}

// NewSession creates a session with an empty history of the given capacity
func NewSession(historySize int) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActiveAt: now,
		history:      NewHistory(historySize),
	}
}

// Lock acquires exclusive use of the session for one turn
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the session
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// History returns the session's buffer. Callers must hold the session lock.
func (s *Session) History() *History {
	return s.history
}

// Touch marks the session as active now. Callers must hold the session lock.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now()
}

// Snapshot returns a copy of the buffered turns
func (s *Session) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Turns()
}

// KeepAlive marks the session as active without taking part in a turn.
// A session in the middle of a turn is left alone; the turn touches it.
func (s *Session) KeepAlive() {
	if !s.mu.TryLock() {
		return
	}
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}

// IsIdle reports whether the session has seen no activity for longer than ttl.
// A session in the middle of a turn is never idle.
func (s *Session) IsIdle(ttl time.Duration, now time.Time) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()
	return now.Sub(s.LastActiveAt) > ttl
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.history == nil {
		return errors.New("session history is not initialized")
	}
	return nil
}
