package models

// Caregiver is a care provider profile.
type Caregiver struct {
	ID              int64    `json:"id"`
	IdentityID      int64    `json:"identity_id"`
	HashedIdentity  string   `json:"hashed_identity"`
	Name            string   `json:"name"`
	Gender          string   `json:"gender,omitempty"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	RatingAverage   float64  `json:"rating_average"`
	TrustScore      float64  `json:"trust_score"`
	Verified        bool     `json:"verified"`
	Available       bool     `json:"available"`
}

// MatchCandidate is one ranked result of a matching query. Ephemeral; it is
// never persisted beyond the screen that requested it.
type MatchCandidate struct {
	CaregiverID     int64    `json:"caregiver_id"`
	Name            string   `json:"name"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	RatingAverage   float64  `json:"rating_average"`
	TrustScore      float64  `json:"trust_score"`
	MatchScore      float64  `json:"match_score"`
	AIConfidence    float64  `json:"ai_confidence"`
	AIReason        string   `json:"ai_reason"`
}

// TrustScore computes a caregiver's trust score from verification status,
// rating average and completed-booking count.
func TrustScore(verified bool, ratingAverage float64, completed int) float64 {
	score := 30.0 * (ratingAverage / 5.0)
	if verified {
		score += 40.0
	}
	done := float64(completed) / 10.0
	if done > 1 {
		done = 1
	}
	return score + 30.0*done
}
