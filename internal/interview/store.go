package interview

import (
	"sync"
	"time"
)

// Store owns the sessions of connected clients
type Store interface {
	// Create starts a fresh session, closing and replacing any existing one
	Create(clientID string) *Session
	// Get returns the session for clientID and whether it exists
	Get(clientID string) (*Session, bool)
	// Remove closes and forgets the session. Removing an unknown id is a no-op
	Remove(clientID string)
	// Len returns the number of live sessions
	Len() int
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(clientID string) *Session {
	session := newSession(clientID, m.now())

	m.mu.Lock()
	old := m.sessions[clientID]
	m.sessions[clientID] = session
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	return session
}

func (m *MemoryStore) Get(clientID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[clientID]
	return session, ok
}

func (m *MemoryStore) Remove(clientID string) {
	m.mu.Lock()
	session, ok := m.sessions[clientID]
	delete(m.sessions, clientID)
	m.mu.Unlock()

	if ok {
		session.close()
	}
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
