package services

import (
	"context"
	"sort"
	"strings"

	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
)

type FreelancerLister interface {
	List(ctx context.Context, filter repository.FreelancerListFilter) ([]models.FreelancerProfile, int, error)
	ListAll(ctx context.Context) ([]models.FreelancerProfile, error)
	GetByUserID(ctx context.Context, userID int64) (*models.FreelancerProfile, error)
}

// TalentQuery is what a business is looking for.
type TalentQuery struct {
	Skills  []string
	MaxRate float64
}

type TalentService struct {
	freelancerRepo FreelancerLister
}

func NewTalentService(freelancerRepo FreelancerLister) *TalentService {
	return &TalentService{freelancerRepo: freelancerRepo}
}

func (s *TalentService) Search(ctx context.Context, filter repository.FreelancerListFilter) ([]models.FreelancerProfile, int, error) {
	return s.freelancerRepo.List(ctx, filter)
}

func (s *TalentService) GetFreelancer(ctx context.Context, userID int64) (*models.FreelancerProfile, error) {
	return s.freelancerRepo.GetByUserID(ctx, userID)
}

// Recommend scores every freelancer against the query and returns the best
// matches, highest score first and rating breaking ties.
func (s *TalentService) Recommend(ctx context.Context, query TalentQuery, limit int) ([]models.FreelancerWithScore, error) {
	freelancers, err := s.freelancerRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.FreelancerWithScore, 0, len(freelancers))
	for _, freelancer := range freelancers {
		matched = append(matched, models.FreelancerWithScore{
			FreelancerProfile: freelancer,
			MatchScore:        calculateMatchScore(query, &freelancer),
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].MatchScore == matched[j].MatchScore {
			return floatValue(matched[i].Rating) > floatValue(matched[j].Rating)
		}
		return matched[i].MatchScore > matched[j].MatchScore
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

func calculateMatchScore(query TalentQuery, freelancer *models.FreelancerProfile) int {
	score := 0
	skills := normalizeValues(freelancer.Skills)

	for _, aliases := range skillAliases(query.Skills) {
		for _, alias := range aliases {
			if _, ok := skills[alias]; ok {
				score += 40
				break
			}
		}
	}

	if floatValue(freelancer.Rating) > 4.0 {
		score += 20
	}
	if intValue(freelancer.ExperienceYears) > 3 {
		score += 15
	}
	if boolValue(freelancer.IsVerified) {
		score += 10
	}
	if query.MaxRate > 0 && freelancer.HourlyRate != nil && *freelancer.HourlyRate <= query.MaxRate {
		score += 15
	}

	return score
}

func skillAliases(skills []string) map[string][]string {
	mapped := make(map[string][]string, len(skills))
	for _, skill := range skills {
		switch key := normalize(skill); key {
		case "golang", "go":
			mapped["go"] = []string{"go", "golang"}
		case "javascript", "js":
			mapped["javascript"] = []string{"javascript", "js"}
		case "typescript", "ts":
			mapped["typescript"] = []string{"typescript", "ts"}
		case "react", "reactjs", "react.js":
			mapped["react"] = []string{"react", "reactjs", "react.js"}
		case "node", "nodejs", "node.js":
			mapped["node"] = []string{"node", "nodejs", "node.js"}
		case "postgres", "postgresql":
			mapped["postgres"] = []string{"postgres", "postgresql"}
		case "ui_design", "ux_design", "ui_ux", "product_design":
			mapped["design"] = []string{"ui_design", "ux_design", "ui_ux", "product_design"}
		case "copywriting", "content_writing":
			mapped["writing"] = []string{"copywriting", "content_writing"}
		default:
			if key != "" {
				mapped[key] = []string{key}
			}
		}
	}

	return mapped
}

func normalizeValues(values *[]string) map[string]struct{} {
	normalized := make(map[string]struct{})
	for _, value := range sliceValue(values) {
		if key := normalize(value); key != "" {
			normalized[key] = struct{}{}
		}
	}
	return normalized
}

func normalize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}

func sliceValue(values *[]string) []string {
	if values == nil {
		return nil
	}
	return *values
}

func floatValue(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func intValue(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func boolValue(value *bool) bool {
	return value != nil && *value
}
