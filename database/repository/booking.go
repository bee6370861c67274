package repository

import (
	"sort"
	"sync"
	"time"

	"sevasetu/models"
)

// BookingRepository defines the interface for booking data access.
type BookingRepository interface {
	GetByID(id int64) (*models.Booking, error)
	Create(booking *models.Booking) error
	Update(booking *models.Booking) error
	// ActiveByCivilian returns the civilian's non-terminal, non-rated booking
	// if one exists. A civilian may only hold one at a time.
	ActiveByCivilian(civilianID int64) (*models.Booking, error)
	// PendingForCaregiver lists bookings assigned to the caregiver that still
	// await an accept or reject decision.
	PendingForCaregiver(caregiverID int64) ([]models.Booking, error)
	// ListByCaregiver lists every booking ever assigned to the caregiver.
	ListByCaregiver(caregiverID int64) ([]models.Booking, error)
	// CountCompleted counts the caregiver's completed, rated and closed
	// bookings, the denominator of the trust score's experience term.
	CountCompleted(caregiverID int64) (int, error)
	// HasOverlap reports whether the caregiver already holds a live booking
	// intersecting the given window.
	HasOverlap(caregiverID int64, start, end time.Time) (bool, error)
}

// MemoryBookingRepo implements BookingRepository in memory.
type MemoryBookingRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Booking
}

// NewMemoryBookingRepo returns an empty booking repository.
func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{nextID: 1, byID: make(map[int64]models.Booking)}
}

func (r *MemoryBookingRepo) GetByID(id int64) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// Create assigns the booking's ID.
func (r *MemoryBookingRepo) Create(booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking.ID = r.nextID
	r.nextID++
	r.byID[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepo) Update(booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[booking.ID]; !ok {
		return ErrNotFound
	}
	r.byID[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepo) ActiveByCivilian(civilianID int64) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.byID {
		if b.CivilianID != civilianID {
			continue
		}
		if models.TerminalStatus(b.Status) || b.Status == models.StatusRated {
			continue
		}
		out := b
		return &out, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryBookingRepo) PendingForCaregiver(caregiverID int64) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Booking
	for _, b := range r.byID {
		if b.CaregiverID == caregiverID && b.Status == models.StatusConfirmed {
			out = append(out, b)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *MemoryBookingRepo) ListByCaregiver(caregiverID int64) ([]models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Booking
	for _, b := range r.byID {
		if b.CaregiverID == caregiverID {
			out = append(out, b)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *MemoryBookingRepo) CountCompleted(caregiverID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.byID {
		if b.CaregiverID != caregiverID {
			continue
		}
		switch b.Status {
		case models.StatusCompleted, models.StatusRated, models.StatusClosed:
			n++
		}
	}
	return n, nil
}

func (r *MemoryBookingRepo) HasOverlap(caregiverID int64, start, end time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.byID {
		if b.CaregiverID != caregiverID {
			continue
		}
		switch b.Status {
		case models.StatusRejected, models.StatusCancelled, models.StatusClosed,
			models.StatusCompleted, models.StatusRated:
			continue
		}
		if b.OverlapsWith(start, end) {
			return true, nil
		}
	}
	return false, nil
}

// Map iteration order is random; callers see stable lists.
func sortByID(bookings []models.Booking) {
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
}
