package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elebur/VoteAPI/internal/domain"
)

type restaurantRepository struct {
	conn
}

func (r *restaurantRepository) Create(ctx context.Context, rest *domain.Restaurant) error {
	rest.DateJoined = r.timestamp()

	err := r.queryRow(ctx, `
		INSERT INTO restaurants (user_id, name, date_joined)
		VALUES ($1, $2, $3)
		RETURNING id`,
		rest.UserID, rest.Name, rest.DateJoined,
	).Scan(&rest.ID)
	if err != nil {
		return fmt.Errorf("create restaurant: %w", classify(err))
	}
	return nil
}

func (r *restaurantRepository) GetByID(ctx context.Context, id int64) (*domain.Restaurant, error) {
	rest := &domain.Restaurant{}
	var userID sql.NullInt64

	err := r.queryRow(ctx, `
		SELECT id, user_id, name, date_joined
		FROM restaurants
		WHERE id = $1`, id,
	).Scan(&rest.ID, &userID, &rest.Name, scanTime(&rest.DateJoined))
	if err != nil {
		return nil, fmt.Errorf("get restaurant %d: %w", id, classify(err))
	}
	if userID.Valid {
		rest.UserID = &userID.Int64
	}
	return rest, nil
}
