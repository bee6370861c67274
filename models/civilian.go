package models

// Civilian is a care recipient profile.
type Civilian struct {
	ID              int64  `json:"id"`
	IdentityID      int64  `json:"identity_id"`
	Name            string `json:"name"`
	GuardianContact string `json:"guardian_contact,omitempty"`
}
