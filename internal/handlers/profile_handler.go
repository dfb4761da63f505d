package handlers

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/repository"
	"github.com/talenthub/backend/internal/services"
)

const maxAvatarSizeBytes = 5 * 1024 * 1024

type ProfileHandler struct {
	profileService *services.ProfileService
	freelancerRepo freelancerProfileStore
	businessRepo   businessProfileStore
	storageService services.StorageService
}

type freelancerProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.FreelancerProfile, error)
}

type businessProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.BusinessProfile, error)
}

func NewProfileHandler(
	profileService *services.ProfileService,
	freelancerRepo freelancerProfileStore,
	businessRepo businessProfileStore,
	storageService services.StorageService,
) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		freelancerRepo: freelancerRepo,
		businessRepo:   businessRepo,
		storageService: storageService,
	}
}

type updateFreelancerProfileRequest struct {
	FullName        *string   `json:"full_name"`
	Headline        *string   `json:"headline"`
	Bio             *string   `json:"bio"`
	Skills          *[]string `json:"skills"`
	ExperienceYears *int      `json:"experience_years"`
	HourlyRate      *float64  `json:"hourly_rate"`
}

type updateBusinessProfileRequest struct {
	CompanyName *string `json:"company_name"`
	Industry    *string `json:"industry"`
	Website     *string `json:"website"`
	Description *string `json:"description"`
}

// requireRole resolves the caller. When it reports false the error response
// has already been written.
func requireRole(c *fiber.Ctx, expected string) (int64, bool) {
	role, ok := c.Locals("role").(string)
	if !ok || role != expected {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return 0, false
	}
	userID, err := parseProfileUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return 0, false
	}
	return userID, true
}

func (h *ProfileHandler) GetFreelancerProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, models.RoleFreelancer)
	if !ok {
		return nil
	}

	profile, err := h.freelancerRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return profileFetchError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) GetBusinessProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, models.RoleBusiness)
	if !ok {
		return nil
	}

	profile, err := h.businessRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return profileFetchError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateFreelancerProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, models.RoleFreelancer)
	if !ok {
		return nil
	}

	var req updateFreelancerProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if validationErr := validateFreelancerProfileUpdate(req); validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	profile, err := h.profileService.UpdateFreelancerProfile(c.Context(), userID, repository.UpdateFreelancerProfileInput{
		FullName:        req.FullName,
		Headline:        req.Headline,
		Bio:             req.Bio,
		Skills:          req.Skills,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
	})
	if err != nil {
		return profileUpdateError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateBusinessProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, models.RoleBusiness)
	if !ok {
		return nil
	}

	var req updateBusinessProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if validationErr := validateBusinessProfileUpdate(req); validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}
	if req.Website != nil {
		website := strings.TrimSpace(*req.Website)
		req.Website = &website
	}

	profile, err := h.profileService.UpdateBusinessProfile(c.Context(), userID, repository.UpdateBusinessProfileInput{
		CompanyName: req.CompanyName,
		Industry:    req.Industry,
		Website:     req.Website,
		Description: req.Description,
	})
	if err != nil {
		return profileUpdateError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UploadFreelancerAvatar(c *fiber.Ctx) error {
	return h.uploadAvatar(c, models.RoleFreelancer)
}

func (h *ProfileHandler) UploadBusinessAvatar(c *fiber.Ctx) error {
	return h.uploadAvatar(c, models.RoleBusiness)
}

func (h *ProfileHandler) uploadAvatar(c *fiber.Ctx, expectedRole string) error {
	userID, ok := requireRole(c, expectedRole)
	if !ok {
		return nil
	}
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is required"})
	}
	if fileHeader.Size <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file is empty"})
	}
	if fileHeader.Size > maxAvatarSizeBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar file exceeds 5MB limit"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar must be a jpg, jpeg, png, or webp file"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open avatar file"})
	}
	defer file.Close()

	avatarURL, err := h.storageService.UploadFile(c.Context(), file, "avatar"+ext, expectedRole+"s/avatars")
	if err != nil {
		log.Printf("upload avatar for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	var (
		previous *string
		profile  any
	)
	if expectedRole == models.RoleFreelancer {
		current, err := h.freelancerRepo.GetByUserID(c.Context(), userID)
		if err != nil {
			return profileFetchError(c, err)
		}
		previous = current.AvatarURL
		profile, err = h.profileService.UpdateFreelancerProfile(c.Context(), userID, repository.UpdateFreelancerProfileInput{
			AvatarURL: &avatarURL,
		})
		if err != nil {
			return profileUpdateError(c, err)
		}
	} else {
		current, err := h.businessRepo.GetByUserID(c.Context(), userID)
		if err != nil {
			return profileFetchError(c, err)
		}
		previous = current.AvatarURL
		profile, err = h.profileService.UpdateBusinessProfile(c.Context(), userID, repository.UpdateBusinessProfileInput{
			AvatarURL: &avatarURL,
		})
		if err != nil {
			return profileUpdateError(c, err)
		}
	}

	if previous != nil && *previous != "" && *previous != avatarURL {
		if err := h.storageService.DeleteFile(c.Context(), *previous); err != nil {
			log.Printf("delete previous avatar for user %d: %v", userID, err)
		}
	}

	return c.JSON(fiber.Map{
		"avatar_url": avatarURL,
		"profile":    profile,
	})
}

func profileFetchError(c *fiber.Ctx, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
}

func profileUpdateError(c *fiber.Ctx, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
}
