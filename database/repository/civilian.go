package repository

import (
	"sync"

	"sevasetu/models"
)

// CivilianRepository defines the interface for civilian profile access.
type CivilianRepository interface {
	GetByID(id int64) (*models.Civilian, error)
	GetByIdentityID(identityID int64) (*models.Civilian, error)
	Create(civilian *models.Civilian) error
	Update(civilian *models.Civilian) error
}

// MemoryCivilianRepo implements CivilianRepository in memory.
type MemoryCivilianRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Civilian
}

// NewMemoryCivilianRepo returns an empty civilian repository.
func NewMemoryCivilianRepo() *MemoryCivilianRepo {
	return &MemoryCivilianRepo{nextID: 1, byID: make(map[int64]models.Civilian)}
}

func (r *MemoryCivilianRepo) GetByID(id int64) (*models.Civilian, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cv, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &cv, nil
}

func (r *MemoryCivilianRepo) GetByIdentityID(identityID int64) (*models.Civilian, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cv := range r.byID {
		if cv.IdentityID == identityID {
			out := cv
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Create assigns the civilian's ID.
func (r *MemoryCivilianRepo) Create(civilian *models.Civilian) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	civilian.ID = r.nextID
	r.nextID++
	r.byID[civilian.ID] = *civilian
	return nil
}

func (r *MemoryCivilianRepo) Update(civilian *models.Civilian) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[civilian.ID]; !ok {
		return ErrNotFound
	}
	r.byID[civilian.ID] = *civilian
	return nil
}
