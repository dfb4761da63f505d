package handlers

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	maxHeadlineLength = 120
	maxSkills         = 30
	maxHourlyRate     = 10000
)

func validateFreelancerProfileUpdate(req updateFreelancerProfileRequest) string {
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return "full_name must not be empty"
	}
	if req.Headline != nil && utf8.RuneCountInString(strings.TrimSpace(*req.Headline)) > maxHeadlineLength {
		return "headline must be at most 120 characters"
	}
	if req.Bio != nil && strings.TrimSpace(*req.Bio) == "" {
		return "bio must not be empty"
	}
	if req.Skills != nil {
		if len(*req.Skills) > maxSkills {
			return "skills must contain at most 30 items"
		}
		for _, skill := range *req.Skills {
			if strings.TrimSpace(skill) == "" {
				return "skills must not contain empty values"
			}
		}
	}
	if req.ExperienceYears != nil && *req.ExperienceYears < 0 {
		return "experience_years must be 0 or greater"
	}
	if req.HourlyRate != nil && (*req.HourlyRate < 0 || *req.HourlyRate > maxHourlyRate) {
		return "hourly_rate must be between 0 and 10000"
	}
	return ""
}

func validateBusinessProfileUpdate(req updateBusinessProfileRequest) string {
	if req.CompanyName != nil && strings.TrimSpace(*req.CompanyName) == "" {
		return "company_name must not be empty"
	}
	if req.Industry != nil && strings.TrimSpace(*req.Industry) == "" {
		return "industry must not be empty"
	}
	if req.Website != nil {
		if err := validateWebsite(*req.Website); err != "" {
			return err
		}
	}
	return ""
}

func validateWebsite(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "website must be an http or https URL"
	}
	return ""
}
