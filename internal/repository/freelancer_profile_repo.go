package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/talenthub/backend/internal/models"
)

const freelancerColumns = `id, user_id, full_name, avatar_url, headline, bio, skills,
			   experience_years, hourly_rate, rating, total_reviews, is_verified,
			   created_at, updated_at`

type FreelancerProfileRepository struct {
	db DBTX
}

func NewFreelancerProfileRepository(db DBTX) *FreelancerProfileRepository {
	return &FreelancerProfileRepository{db: db}
}

type FreelancerListFilter struct {
	Skill      string
	MinRating  float64
	MaxRate    float64
	Experience int
	Offset     int
	Limit      int
}

type UpdateFreelancerProfileInput struct {
	FullName        *string
	AvatarURL       *string
	Headline        *string
	Bio             *string
	Skills          *[]string
	ExperienceYears *int
	HourlyRate      *float64
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFreelancer(row rowScanner) (*models.FreelancerProfile, error) {
	var profile models.FreelancerProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Headline,
		&profile.Bio,
		&profile.Skills,
		&profile.ExperienceYears,
		&profile.HourlyRate,
		&profile.Rating,
		&profile.TotalReviews,
		&profile.IsVerified,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *FreelancerProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO freelancer_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *FreelancerProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.FreelancerProfile, error) {
	query := `SELECT ` + freelancerColumns + ` FROM freelancer_profiles WHERE user_id = $1`
	return scanFreelancer(r.db.QueryRow(ctx, query, userID))
}

func (r *FreelancerProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateFreelancerProfileInput) (*models.FreelancerProfile, error) {
	query := `
		UPDATE freelancer_profiles
		SET full_name = COALESCE($1, full_name),
			avatar_url = COALESCE($2, avatar_url),
			headline = COALESCE($3, headline),
			bio = COALESCE($4, bio),
			skills = COALESCE($5, skills),
			experience_years = COALESCE($6, experience_years),
			hourly_rate = COALESCE($7, hourly_rate),
			updated_at = NOW()
		WHERE user_id = $8
		RETURNING ` + freelancerColumns
	return scanFreelancer(r.db.QueryRow(ctx, query,
		req.FullName,
		req.AvatarURL,
		req.Headline,
		req.Bio,
		req.Skills,
		req.ExperienceYears,
		req.HourlyRate,
		userID,
	))
}

// List returns one page of freelancers matching filter together with the
// total number of matches.
func (r *FreelancerProfileRepository) List(ctx context.Context, filter FreelancerListFilter) ([]models.FreelancerProfile, int, error) {
	conditions := []string{"full_name IS NOT NULL"}
	args := make([]any, 0, 6)
	if filter.Skill != "" {
		args = append(args, strings.ToLower(filter.Skill))
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(SELECT LOWER(s) FROM UNNEST(skills) AS s)", len(args)))
	}
	if filter.MinRating > 0 {
		args = append(args, filter.MinRating)
		conditions = append(conditions, fmt.Sprintf("COALESCE(rating, 0) >= $%d", len(args)))
	}
	if filter.MaxRate > 0 {
		args = append(args, filter.MaxRate)
		conditions = append(conditions, fmt.Sprintf("COALESCE(hourly_rate, 0) <= $%d", len(args)))
	}
	if filter.Experience > 0 {
		args = append(args, filter.Experience)
		conditions = append(conditions, fmt.Sprintf("COALESCE(experience_years, 0) >= $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM freelancer_profiles WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM freelancer_profiles
		WHERE %s
		ORDER BY rating DESC NULLS LAST, id ASC
		LIMIT $%d OFFSET $%d
	`, freelancerColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]models.FreelancerProfile, 0)
	for rows.Next() {
		profile, err := scanFreelancer(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func (r *FreelancerProfileRepository) ListAll(ctx context.Context) ([]models.FreelancerProfile, error) {
	query := `SELECT ` + freelancerColumns + ` FROM freelancer_profiles WHERE full_name IS NOT NULL`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.FreelancerProfile, 0)
	for rows.Next() {
		profile, err := scanFreelancer(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}
