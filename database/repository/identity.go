package repository

import (
	"sync"

	"sevasetu/models"
)

// IdentityRepository defines the interface for auth identity data access.
// Identities are keyed by phone number plus role: the same phone may hold a
// civilian and a caregiver identity independently.
type IdentityRepository interface {
	GetByID(id int64) (*models.AuthIdentity, error)
	GetByPhoneRole(phone, role string) (*models.AuthIdentity, error)
	Create(identity *models.AuthIdentity) error
	Update(identity *models.AuthIdentity) error
}

// MemoryIdentityRepo implements IdentityRepository in memory.
type MemoryIdentityRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.AuthIdentity
}

// NewMemoryIdentityRepo returns an empty identity repository.
func NewMemoryIdentityRepo() *MemoryIdentityRepo {
	return &MemoryIdentityRepo{nextID: 1, byID: make(map[int64]models.AuthIdentity)}
}

func (r *MemoryIdentityRepo) GetByID(id int64) (*models.AuthIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ident, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ident, nil
}

func (r *MemoryIdentityRepo) GetByPhoneRole(phone, role string) (*models.AuthIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ident := range r.byID {
		if ident.PhoneNumber == phone && ident.Role == role {
			out := ident
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Create assigns the identity's ID.
func (r *MemoryIdentityRepo) Create(identity *models.AuthIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity.ID = r.nextID
	r.nextID++
	r.byID[identity.ID] = *identity
	return nil
}

func (r *MemoryIdentityRepo) Update(identity *models.AuthIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[identity.ID]; !ok {
		return ErrNotFound
	}
	r.byID[identity.ID] = *identity
	return nil
}
