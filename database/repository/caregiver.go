package repository

import (
	"sync"

	"sevasetu/models"
)

// CaregiverRepository defines the interface for caregiver profile access.
type CaregiverRepository interface {
	GetByID(id int64) (*models.Caregiver, error)
	GetByIdentityID(identityID int64) (*models.Caregiver, error)
	Create(caregiver *models.Caregiver) error
	Update(caregiver *models.Caregiver) error
	ListAvailable() ([]models.Caregiver, error)
}

// MemoryCaregiverRepo implements CaregiverRepository in memory.
type MemoryCaregiverRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Caregiver
}

// NewMemoryCaregiverRepo returns an empty caregiver repository.
func NewMemoryCaregiverRepo() *MemoryCaregiverRepo {
	return &MemoryCaregiverRepo{nextID: 1, byID: make(map[int64]models.Caregiver)}
}

func (r *MemoryCaregiverRepo) GetByID(id int64) (*models.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cg, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cg
	out.Skills = append([]string(nil), cg.Skills...)
	return &out, nil
}

func (r *MemoryCaregiverRepo) GetByIdentityID(identityID int64) (*models.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cg := range r.byID {
		if cg.IdentityID == identityID {
			out := cg
			out.Skills = append([]string(nil), cg.Skills...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Create assigns the caregiver's ID.
func (r *MemoryCaregiverRepo) Create(caregiver *models.Caregiver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	caregiver.ID = r.nextID
	r.nextID++
	r.byID[caregiver.ID] = *caregiver
	return nil
}

func (r *MemoryCaregiverRepo) Update(caregiver *models.Caregiver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[caregiver.ID]; !ok {
		return ErrNotFound
	}
	r.byID[caregiver.ID] = *caregiver
	return nil
}

func (r *MemoryCaregiverRepo) ListAvailable() ([]models.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Caregiver
	for _, cg := range r.byID {
		if cg.Available {
			c := cg
			c.Skills = append([]string(nil), cg.Skills...)
			out = append(out, c)
		}
	}
	return out, nil
}
