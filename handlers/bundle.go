package handlers

import (
	"time"

	"sevasetu/database/repository"
	"sevasetu/services/matching"
	"sevasetu/utils"
)

// Bundle aggregates the demo API's handlers and the shared auth state the
// routes need.
type Bundle struct {
	Auth      *AuthHandler
	Caregiver *CaregiverHandler
	Civilian  *CivilianHandler
	Sessions  *utils.SessionRegistry
}

// NewBundle wires every handler over one repository set.
func NewBundle(repos *repository.Set) *Bundle {
	sessions := utils.NewSessionRegistry()
	matcher := matching.NewDefault(repos.Caregivers, repos.Bookings, time.Now().UnixNano())

	return &Bundle{
		Auth: &AuthHandler{
			Identities: repos.Identities,
			Caregivers: repos.Caregivers,
			Civilians:  repos.Civilians,
			OTPs:       utils.NewOTPStore(),
			Sessions:   sessions,
		},
		Caregiver: &CaregiverHandler{
			Caregivers: repos.Caregivers,
			Civilians:  repos.Civilians,
			Bookings:   repos.Bookings,
			Ratings:    repos.Ratings,
		},
		Civilian: &CivilianHandler{
			Civilians:  repos.Civilians,
			Caregivers: repos.Caregivers,
			Bookings:   repos.Bookings,
			Ratings:    repos.Ratings,
			Matcher:    matcher,
		},
		Sessions: sessions,
	}
}
