package recorder

import (
	"sync"

	"github.com/google/uuid"
)

func newSessionID() string { return uuid.NewString() }

// Manager tracks the live controller per capture client so a reconnect can
// find it and so at most one capture exists per client.
type Manager struct {
	mu   sync.Mutex
	byID map[string]*Controller // client id -> controller
}

func NewManager() *Manager {
	return &Manager{byID: map[string]*Controller{}}
}

func (m *Manager) Register(clientID string, c *Controller) {
	m.mu.Lock()
	m.byID[clientID] = c
	m.mu.Unlock()
}

func (m *Manager) Lookup(clientID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[clientID]
	return c, ok
}

func (m *Manager) Unregister(clientID string) {
	m.mu.Lock()
	delete(m.byID, clientID)
	m.mu.Unlock()
}
