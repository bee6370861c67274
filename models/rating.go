package models

// Rating is a civilian's review of a caregiver after a completed session.
type Rating struct {
	ID          int64  `json:"id"`
	CaregiverID int64  `json:"caregiver_id"`
	Rating      int    `json:"rating"` // 1..5
	ReviewText  string `json:"review_text,omitempty"`
}
