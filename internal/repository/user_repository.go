package repository

import (
	"context"
	"fmt"

	"github.com/elebur/VoteAPI/internal/domain"
)

type userRepository struct {
	conn
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	user.DateJoined = r.timestamp()

	query := `
		INSERT INTO users (username, email, password_hash, is_admin, date_joined)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.queryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.DateJoined,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, classify(err))
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	user := &domain.User{}

	query := `
		SELECT id, username, email, password_hash, is_admin, date_joined
		FROM users
		WHERE ` + where

	err := r.queryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAdmin,
		scanTime(&user.DateJoined),
	)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classify(err))
	}
	return user, nil
}
