package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"wot-api/internal/domain"
	"wot-api/pkg/database"
)

type profileRepository struct {
	db *database.PostgresDB
}

// NewProfileRepository creates a Postgres-backed profile repository.
func NewProfileRepository(db *database.PostgresDB) ProfileRepository {
	return &profileRepository{db: db}
}

// Insert writes a profile. Usernames are stored lowercased; the unique
// index on username backs the signup pre-check and its violation is passed
// through.
func (r *profileRepository) Insert(ctx context.Context, profile *domain.UserProfile) error {
	query := `
		INSERT INTO user_profiles (id, username)
		VALUES ($1, $2)
		RETURNING created_at
	`

	return r.db.Pool.QueryRow(ctx, query,
		profile.ID,
		strings.ToLower(profile.Username),
	).Scan(&profile.CreatedAt)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	query := `SELECT id, username, created_at FROM user_profiles WHERE id = $1`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Username,
		&profile.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

func (r *profileRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_profiles WHERE username = $1)`,
		strings.ToLower(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}
