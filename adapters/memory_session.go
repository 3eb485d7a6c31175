package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/satriahrh/chatwidget/domain"
	"github.com/satriahrh/chatwidget/domain/entities"
	"github.com/satriahrh/chatwidget/domain/repositories"
)

var _ repositories.SessionRepository = (*MemorySessionRepository)(nil)

// MemorySessionRepository keeps sessions in process memory only. Every
// session gets its own history buffer; nothing survives a restart.
type MemorySessionRepository struct {
	mu          sync.RWMutex
	sessions    map[string]*entities.Session // id -> session mapping
	historySize int
	now         func() time.Time
	newSession  func(historySize int) *entities.Session
}

// NewMemorySessionRepository creates an empty repository whose sessions
// retain at most historySize turns
func NewMemorySessionRepository(historySize int) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:    make(map[string]*entities.Session),
		historySize: historySize,
		now:         time.Now,
		newSession:  entities.NewSession,
	}
}

// Create implements SessionRepository interface
func (m *MemorySessionRepository) Create(ctx context.Context) (*entities.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session := m.newSession(m.historySize)
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return nil, errors.New("session id collision")
	}
	m.sessions[session.ID] = session

	return session, nil
}

// Get implements SessionRepository interface
func (m *MemorySessionRepository) Get(ctx context.Context, id string) (*entities.Session, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete implements SessionRepository interface
func (m *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// ExpireIdle implements SessionRepository interface
func (m *MemorySessionRepository) ExpireIdle(ctx context.Context, ttl time.Duration) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, session := range m.sessions {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if session.IsIdle(ttl, now) {
			delete(m.sessions, id)
			expired++
		}
	}
	return expired, nil
}

// Count implements SessionRepository interface
func (m *MemorySessionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
