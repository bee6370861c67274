package utils

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuthSession is a server-side record of an issued login session. Logout
// revokes it, which invalidates tokens carrying its session_id.
type AuthSession struct {
	SessionID  string
	IdentityID int64
	Role       string
	IssuedAt   time.Time
	Revoked    bool
}

// SessionRegistry tracks active auth sessions by session_id.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*AuthSession
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*AuthSession)}
}

// Create registers a new session for the identity+role and returns its id.
func (r *SessionRegistry) Create(identityID int64, role string) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &AuthSession{
		SessionID:  id,
		IdentityID: identityID,
		Role:       role,
		IssuedAt:   time.Now(),
	}
	r.mu.Unlock()
	return id
}

// Valid reports whether the session exists, is not revoked, and (when
// expectedRole is non-empty) was issued for that role.
func (r *SessionRegistry) Valid(sessionID, expectedRole string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Revoked {
		return false
	}
	if expectedRole != "" && s.Role != expectedRole {
		return false
	}
	return true
}

// Revoke marks the session as revoked. Returns false if it does not exist.
func (r *SessionRegistry) Revoke(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	s.Revoked = true
	return true
}
