package models

import "time"

type BusinessProfile struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	CompanyName *string   `json:"company_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Industry    *string   `json:"industry"`
	Website     *string   `json:"website"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
