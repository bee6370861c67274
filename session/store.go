// Package session persists role-scoped auth sessions and a few auxiliary
// client values (phone number, last booking id, caregiver display name) the
// apps restore on startup.
package session

import (
	"sync"

	"sevasetu/models"
)

// Auxiliary value keys stored alongside the session blob.
const (
	KeyPhone         = "phone"
	KeyIdentityID    = "identity_id"
	KeyBookingID     = "current_booking_id"
	KeyCaregiverName = "current_caregiver_name"
)

// Store is a role-keyed persistence boundary for sessions and client values.
// It performs no validation beyond presence; callers interpret the role field.
type Store interface {
	// Get returns the session for the role, if one is stored.
	Get(role string) (models.Session, bool)
	// Set stores the session under the role key.
	Set(role string, s models.Session) error
	// Clear removes the session and every auxiliary value for the role.
	Clear(role string) error

	// Value returns an auxiliary value for the role, or "".
	Value(role, key string) string
	// SetValue stores an auxiliary value for the role.
	SetValue(role, key, value string) error
	// DeleteValue removes one auxiliary value for the role.
	DeleteValue(role, key string) error
}

// MemoryStore is an in-memory Store, used by tests and as the embedded state
// of the file-backed store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	values   map[string]map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		values:   make(map[string]map[string]string),
	}
}

func (m *MemoryStore) Get(role string) (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[role]
	return s, ok
}

func (m *MemoryStore) Set(role string, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[role] = s
	return nil
}

func (m *MemoryStore) Clear(role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, role)
	delete(m.values, role)
	return nil
}

func (m *MemoryStore) Value(role, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[role][key]
}

func (m *MemoryStore) SetValue(role, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[role] == nil {
		m.values[role] = make(map[string]string)
	}
	m.values[role][key] = value
	return nil
}

func (m *MemoryStore) DeleteValue(role, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[role], key)
	return nil
}

// snapshot copies the current state for persistence.
func (m *MemoryStore) snapshot() (map[string]models.Session, map[string]map[string]string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make(map[string]models.Session, len(m.sessions))
	for k, v := range m.sessions {
		sessions[k] = v
	}
	values := make(map[string]map[string]string, len(m.values))
	for role, kv := range m.values {
		cp := make(map[string]string, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		values[role] = cp
	}
	return sessions, values
}
