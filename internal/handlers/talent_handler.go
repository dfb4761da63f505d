package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
	"github.com/talenthub/backend/internal/services"
)

type talentFinder interface {
	Search(ctx context.Context, filter repository.FreelancerListFilter) ([]models.FreelancerProfile, int, error)
	GetFreelancer(ctx context.Context, userID int64) (*models.FreelancerProfile, error)
	Recommend(ctx context.Context, query services.TalentQuery, limit int) ([]models.FreelancerWithScore, error)
}

type TalentHandler struct {
	talent talentFinder
}

func NewTalentHandler(talent talentFinder) *TalentHandler {
	return &TalentHandler{talent: talent}
}

func (h *TalentHandler) ListFreelancers(c *fiber.Ctx) error {
	page, limit, err := parsePaging(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "page and limit must be positive integers"})
	}

	minRating, err := parseNonNegativeFloat(c.Query("min_rating"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min_rating must be a valid non-negative number"})
	}
	maxRate, err := parseNonNegativeFloat(c.Query("max_rate"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_rate must be a valid non-negative number"})
	}
	experience, err := parseNonNegativeInt(c.Query("experience"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "experience must be a valid non-negative integer"})
	}

	freelancers, total, err := h.talent.Search(c.Context(), repository.FreelancerListFilter{
		Skill:      strings.TrimSpace(c.Query("skill")),
		MinRating:  minRating,
		MaxRate:    maxRate,
		Experience: experience,
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch freelancers"})
	}

	response := make([]models.FreelancerListResponse, 0, len(freelancers))
	for _, freelancer := range freelancers {
		response = append(response, buildFreelancerListResponse(freelancer, 0))
	}

	return c.JSON(fiber.Map{
		"freelancers": response,
		"pagination":  buildPaginationMeta(page, limit, total),
	})
}

// GetRecommendedFreelancers ranks freelancers for a business looking for the
// skills in ?skills=a,b within an optional ?max_rate budget.
func (h *TalentHandler) GetRecommendedFreelancers(c *fiber.Ctx) error {
	role, ok := c.Locals("role").(string)
	if !ok || role != models.RoleBusiness {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	limit, err := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	maxRate, err := parseNonNegativeFloat(c.Query("max_rate"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_rate must be a valid non-negative number"})
	}

	freelancers, err := h.talent.Recommend(c.Context(), services.TalentQuery{
		Skills:  splitList(c.Query("skills")),
		MaxRate: maxRate,
	}, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch recommended freelancers"})
	}

	response := make([]models.FreelancerListResponse, 0, len(freelancers))
	for _, freelancer := range freelancers {
		response = append(response, buildFreelancerListResponse(freelancer.FreelancerProfile, freelancer.MatchScore))
	}

	return c.JSON(fiber.Map{"freelancers": response})
}

func (h *TalentHandler) GetFreelancerDetail(c *fiber.Ctx) error {
	freelancerID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || freelancerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid freelancer id"})
	}

	freelancer, err := h.talent.GetFreelancer(c.Context(), freelancerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Freelancer not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch freelancer"})
	}

	return c.JSON(fiber.Map{
		"freelancer": models.FreelancerDetailResponse{
			FreelancerListResponse: buildFreelancerListResponse(*freelancer, 0),
			Bio:                    stringValue(freelancer.Bio),
			IsVerified:             boolValue(freelancer.IsVerified),
		},
	})
}

func buildFreelancerListResponse(freelancer models.FreelancerProfile, matchScore int) models.FreelancerListResponse {
	return models.FreelancerListResponse{
		ID:              strconv.FormatInt(freelancer.UserID, 10),
		FullName:        stringValue(freelancer.FullName),
		AvatarURL:       stringValue(freelancer.AvatarURL),
		Headline:        stringValue(freelancer.Headline),
		Skills:          stringSliceValue(freelancer.Skills),
		ExperienceYears: intValueResponse(freelancer.ExperienceYears),
		HourlyRate:      floatValueResponse(freelancer.HourlyRate),
		Rating:          floatValueResponse(freelancer.Rating),
		TotalReviews:    freelancer.TotalReviews,
		MatchScore:      matchScore,
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func parseNonNegativeInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errInvalidNumber
	}
	return value, nil
}

func parseNonNegativeFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errInvalidNumber
	}
	return value, nil
}

var errInvalidNumber = errors.New("invalid number")

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func stringSliceValue(value *[]string) []string {
	if value == nil {
		return []string{}
	}
	return *value
}

func floatValueResponse(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func intValueResponse(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}

func boolValue(value *bool) bool {
	if value == nil {
		return false
	}
	return *value
}

var _ services.FreelancerLister = (*repository.FreelancerProfileRepository)(nil)
