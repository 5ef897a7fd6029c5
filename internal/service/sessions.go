package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bmedtech/startup-intake/internal/wizard"
)

// SessionManager tracks the live wizard sessions. Each session is owned by
// one applicant; the manager only guards the registry itself.
type SessionManager struct {
	mu       sync.RWMutex
	machine  *wizard.Machine
	sessions map[string]*wizard.Session
}

func NewSessionManager(machine *wizard.Machine) *SessionManager {
	return &SessionManager{
		machine:  machine,
		sessions: make(map[string]*wizard.Session),
	}
}

// Create opens a new session with a generated ID.
func (m *SessionManager) Create() *wizard.Session {
	s := m.machine.NewSession(uuid.New().String())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get retrieves an existing session.
func (m *SessionManager) Get(id string) (*wizard.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return s, nil
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired drops sessions idle for longer than maxAge and returns
// how many were removed. An abandoned wizard leaves no persisted trace.
func (m *SessionManager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > maxAge {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
