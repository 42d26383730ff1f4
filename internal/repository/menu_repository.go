package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elebur/VoteAPI/internal/domain"
)

type menuRepository struct {
	conn
}

const menuColumns = `id, restaurant_id, title, notes, launch_date, date_created, last_modified`

func (r *menuRepository) Create(ctx context.Context, m *domain.Menu) error {
	now := r.timestamp()
	m.DateCreated = now
	m.LastModified = now

	err := r.queryRow(ctx, `
		INSERT INTO menus (restaurant_id, title, notes, launch_date, date_created, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.RestaurantID, m.Title, m.Notes, m.LaunchDate, m.DateCreated, m.LastModified,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create menu: %w", classify(err))
	}
	return nil
}

func (r *menuRepository) AttachItems(ctx context.Context, menuID int64, itemIDs []int64) error {
	var next int
	err := r.queryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM menu_menu_items WHERE menu_id = $1`, menuID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("attach items to menu %d: %w", menuID, classify(err))
	}

	for _, itemID := range itemIDs {
		res, err := r.exec(ctx, `
			INSERT INTO menu_menu_items (menu_id, menu_item_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (menu_id, menu_item_id) DO NOTHING`,
			menuID, itemID, next,
		)
		if err != nil {
			return fmt.Errorf("attach item %d to menu %d: %w", itemID, menuID, classify(err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			next++
		}
	}
	return nil
}

func (r *menuRepository) GetByID(ctx context.Context, id int64) (*domain.Menu, error) {
	m, err := scanMenu(r.queryRow(ctx, `SELECT `+menuColumns+` FROM menus WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get menu %d: %w", id, classify(err))
	}

	items, err := r.itemsFor(ctx, `l.menu_id = $1`, id)
	if err != nil {
		return nil, err
	}
	m.Items = items[m.ID]
	return m, nil
}

func (r *menuRepository) ListByLaunchDate(ctx context.Context, date domain.Date) ([]*domain.Menu, error) {
	rows, err := r.query(ctx, `SELECT `+menuColumns+` FROM menus WHERE launch_date = $1 ORDER BY id`, date)
	if err != nil {
		return nil, fmt.Errorf("list menus for %s: %w", date, err)
	}
	defer rows.Close()

	menus := []*domain.Menu{}
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu: %w", err)
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list menus for %s: %w", date, err)
	}
	if len(menus) == 0 {
		return menus, nil
	}

	items, err := r.itemsFor(ctx, `l.menu_id IN (SELECT id FROM menus WHERE launch_date = $1)`, date)
	if err != nil {
		return nil, err
	}
	for _, m := range menus {
		m.Items = items[m.ID]
	}
	return menus, nil
}

// itemsFor loads attached items grouped by menu id, in attachment order.
func (r *menuRepository) itemsFor(ctx context.Context, where string, arg any) (map[int64][]domain.MenuItem, error) {
	rows, err := r.query(ctx, `
		SELECT l.menu_id, i.id, i.restaurant_id, i.title, i.description
		FROM menu_menu_items l
		JOIN menu_items i ON i.id = l.menu_item_id
		WHERE `+where+`
		ORDER BY l.menu_id, l.position`, arg)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.MenuItem)
	for rows.Next() {
		var menuID int64
		var it domain.MenuItem
		if err := rows.Scan(&menuID, &it.ID, &it.RestaurantID, &it.Title, &it.Description); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out[menuID] = append(out[menuID], it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenu(row rowScanner) (*domain.Menu, error) {
	m := &domain.Menu{}
	var title, notes sql.NullString
	err := row.Scan(
		&m.ID,
		&m.RestaurantID,
		&title,
		&notes,
		&m.LaunchDate,
		scanTime(&m.DateCreated),
		scanTime(&m.LastModified),
	)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		m.Title = &title.String
	}
	if notes.Valid {
		m.Notes = &notes.String
	}
	return m, nil
}
