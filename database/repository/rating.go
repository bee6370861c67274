package repository

import (
	"sync"

	"sevasetu/models"
)

// RatingRepository defines the interface for rating data access.
type RatingRepository interface {
	Create(rating *models.Rating) error
	ListByCaregiver(caregiverID int64) ([]models.Rating, error)
	// AverageForCaregiver returns the mean star rating, 0 when unrated.
	AverageForCaregiver(caregiverID int64) (float64, error)
}

// MemoryRatingRepo implements RatingRepository in memory.
type MemoryRatingRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Rating
}

// NewMemoryRatingRepo returns an empty rating repository.
func NewMemoryRatingRepo() *MemoryRatingRepo {
	return &MemoryRatingRepo{nextID: 1, byID: make(map[int64]models.Rating)}
}

// Create assigns the rating's ID.
func (r *MemoryRatingRepo) Create(rating *models.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rating.ID = r.nextID
	r.nextID++
	r.byID[rating.ID] = *rating
	return nil
}

func (r *MemoryRatingRepo) ListByCaregiver(caregiverID int64) ([]models.Rating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Rating
	for _, rt := range r.byID {
		if rt.CaregiverID == caregiverID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r *MemoryRatingRepo) AverageForCaregiver(caregiverID int64) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum, n := 0, 0
	for _, rt := range r.byID {
		if rt.CaregiverID == caregiverID {
			sum += rt.Rating
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}
