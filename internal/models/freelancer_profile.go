package models

import "time"

type FreelancerProfile struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	FullName        *string   `json:"full_name"`
	AvatarURL       *string   `json:"avatar_url"`
	Headline        *string   `json:"headline"`
	Bio             *string   `json:"bio"`
	Skills          *[]string `json:"skills"`
	ExperienceYears *int      `json:"experience_years"`
	HourlyRate      *float64  `json:"hourly_rate"`
	Rating          *float64  `json:"rating"`
	TotalReviews    int       `json:"total_reviews"`
	IsVerified      *bool     `json:"is_verified"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type FreelancerWithScore struct {
	FreelancerProfile
	MatchScore int `json:"match_score"`
}

type FreelancerListResponse struct {
	ID              string   `json:"id"`
	FullName        string   `json:"full_name"`
	AvatarURL       string   `json:"avatar_url"`
	Headline        string   `json:"headline"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
	HourlyRate      float64  `json:"hourly_rate"`
	Rating          float64  `json:"rating"`
	TotalReviews    int      `json:"total_reviews"`
	MatchScore      int      `json:"match_score,omitempty"`
}

type FreelancerDetailResponse struct {
	FreelancerListResponse
	Bio        string `json:"bio"`
	IsVerified bool   `json:"is_verified"`
}
