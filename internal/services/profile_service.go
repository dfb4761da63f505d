package services

import (
	"context"

	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
)

type FreelancerProfileUpdater interface {
	UpdatePartial(ctx context.Context, userID int64, req repository.UpdateFreelancerProfileInput) (*models.FreelancerProfile, error)
}

type BusinessProfileUpdater interface {
	UpdatePartial(ctx context.Context, userID int64, req repository.UpdateBusinessProfileInput) (*models.BusinessProfile, error)
}

type ProfileService struct {
	freelancerRepo FreelancerProfileUpdater
	businessRepo   BusinessProfileUpdater
}

func NewProfileService(freelancerRepo FreelancerProfileUpdater, businessRepo BusinessProfileUpdater) *ProfileService {
	return &ProfileService{
		freelancerRepo: freelancerRepo,
		businessRepo:   businessRepo,
	}
}

func (s *ProfileService) UpdateFreelancerProfile(ctx context.Context, userID int64, req repository.UpdateFreelancerProfileInput) (*models.FreelancerProfile, error) {
	if req.Skills != nil {
		skills := dedupeSkills(*req.Skills)
		req.Skills = &skills
	}
	return s.freelancerRepo.UpdatePartial(ctx, userID, req)
}

func (s *ProfileService) UpdateBusinessProfile(ctx context.Context, userID int64, req repository.UpdateBusinessProfileInput) (*models.BusinessProfile, error) {
	return s.businessRepo.UpdatePartial(ctx, userID, req)
}

// dedupeSkills drops blanks and case-insensitive repeats, keeping first spelling.
func dedupeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		key := normalize(skill)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}
