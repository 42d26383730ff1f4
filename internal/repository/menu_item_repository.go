package repository

import (
	"context"
	"fmt"

	"github.com/elebur/VoteAPI/internal/domain"
)

type menuItemRepository struct {
	conn
}

func (r *menuItemRepository) FindByTitle(ctx context.Context, restaurantID int64, title string) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}
	err := r.queryRow(ctx, `
		SELECT id, restaurant_id, title, description
		FROM menu_items
		WHERE restaurant_id = $1 AND title = $2`,
		restaurantID, title,
	).Scan(&item.ID, &item.RestaurantID, &item.Title, &item.Description)
	if err != nil {
		return nil, fmt.Errorf("find menu item %q: %w", title, classify(err))
	}
	return item, nil
}

func (r *menuItemRepository) UpdateDescription(ctx context.Context, id int64, description string) error {
	res, err := r.exec(ctx, `UPDATE menu_items SET description = $1 WHERE id = $2`, description, id)
	if err != nil {
		return fmt.Errorf("update menu item %d: %w", id, classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update menu item %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Upsert relies on UNIQUE (restaurant_id, title) so concurrent writers converge on one row.
func (r *menuItemRepository) Upsert(ctx context.Context, item *domain.MenuItem) error {
	err := r.queryRow(ctx, `
		INSERT INTO menu_items (restaurant_id, title, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (restaurant_id, title) DO UPDATE SET description = excluded.description
		RETURNING id`,
		item.RestaurantID, item.Title, item.Description,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("upsert menu item %q: %w", item.Title, classify(err))
	}
	return nil
}
