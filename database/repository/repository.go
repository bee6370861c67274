// Package repository defines the data-access interfaces for the demo API
// server and their in-memory implementations. Everything lives in maps behind
// an RWMutex; there is no persistence engine.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Set bundles one repository per entity, sharing nothing.
type Set struct {
	Identities IdentityRepository
	Caregivers CaregiverRepository
	Civilians  CivilianRepository
	Bookings   BookingRepository
	Ratings    RatingRepository
}

// NewMemorySet builds a fresh all-in-memory repository set.
func NewMemorySet() *Set {
	return &Set{
		Identities: NewMemoryIdentityRepo(),
		Caregivers: NewMemoryCaregiverRepo(),
		Civilians:  NewMemoryCivilianRepo(),
		Bookings:   NewMemoryBookingRepo(),
		Ratings:    NewMemoryRatingRepo(),
	}
}
