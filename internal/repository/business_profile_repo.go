package repository

import (
	"context"

	"github.com/talenthub/backend/internal/models"
)

type BusinessProfileRepository struct {
	db DBTX
}

func NewBusinessProfileRepository(db DBTX) *BusinessProfileRepository {
	return &BusinessProfileRepository{db: db}
}

type UpdateBusinessProfileInput struct {
	CompanyName *string
	AvatarURL   *string
	Industry    *string
	Website     *string
	Description *string
}

func (r *BusinessProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO business_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *BusinessProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.BusinessProfile, error) {
	query := `
		SELECT id, user_id, company_name, avatar_url, industry, website, description, created_at, updated_at
		FROM business_profiles
		WHERE user_id = $1
	`
	var profile models.BusinessProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.CompanyName,
		&profile.AvatarURL,
		&profile.Industry,
		&profile.Website,
		&profile.Description,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *BusinessProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateBusinessProfileInput) (*models.BusinessProfile, error) {
	query := `
		UPDATE business_profiles
		SET company_name = COALESCE($1, company_name),
			avatar_url = COALESCE($2, avatar_url),
			industry = COALESCE($3, industry),
			website = COALESCE($4, website),
			description = COALESCE($5, description),
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING id, user_id, company_name, avatar_url, industry, website, description, created_at, updated_at
	`
	var profile models.BusinessProfile
	err := r.db.QueryRow(ctx, query,
		req.CompanyName,
		req.AvatarURL,
		req.Industry,
		req.Website,
		req.Description,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.CompanyName,
		&profile.AvatarURL,
		&profile.Industry,
		&profile.Website,
		&profile.Description,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
