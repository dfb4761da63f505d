package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/talenthub/backend/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDirectoryEntry resolves the display identity of a user from whichever
// profile table matches the account role.
func (r *UserRepository) GetDirectoryEntry(ctx context.Context, id int64) (*models.DirectoryEntry, error) {
	query := `
		SELECT u.id, u.email, u.role,
			   COALESCE(fp.full_name, bp.company_name, ''),
			   COALESCE(fp.avatar_url, bp.avatar_url, '')
		FROM users u
		LEFT JOIN freelancer_profiles fp ON fp.user_id = u.id
		LEFT JOIN business_profiles bp ON bp.user_id = u.id
		WHERE u.id = $1
	`
	var entry models.DirectoryEntry
	err := r.db.QueryRow(ctx, query, id).
		Scan(&entry.UserID, &entry.Email, &entry.Role, &entry.DisplayName, &entry.AvatarURL)
	if err != nil {
		return nil, err
	}
	if entry.DisplayName == "" {
		entry.DisplayName = entry.Email
	}
	return &entry, nil
}
