package domain

import (
	"context"
	"time"
)

// MenuItem is a dish, unique per restaurant by title. One item can appear on many menus.
type MenuItem struct {
	ID           int64
	RestaurantID int64
	Title        string
	Description  string
}

func (i *MenuItem) DisplayName() string { return i.Title }

// Menu is a dated set of items that employees vote on.
type Menu struct {
	ID           int64
	RestaurantID int64
	Title        *string
	Notes        *string
	LaunchDate   Date
	Items        []MenuItem // attachment order
	DateCreated  time.Time
	LastModified time.Time
}

func (m *Menu) DisplayName() string {
	if m.Title == nil {
		return ""
	}
	return *m.Title
}

type MenuItemRepository interface {
	// FindByTitle returns ErrNotFound when the restaurant has no item with that title.
	FindByTitle(ctx context.Context, restaurantID int64, title string) (*MenuItem, error)
	UpdateDescription(ctx context.Context, id int64, description string) error
	// Upsert inserts the item or, if the title already exists for the restaurant,
	// overwrites its description. ID is filled either way.
	Upsert(ctx context.Context, item *MenuItem) error
}

type MenuRepository interface {
	// Create inserts the menu row only; items are attached separately.
	Create(ctx context.Context, menu *Menu) error
	// AttachItems links items in the given order. Already attached items are skipped.
	AttachItems(ctx context.Context, menuID int64, itemIDs []int64) error
	GetByID(ctx context.Context, id int64) (*Menu, error)
	// ListByLaunchDate returns menus for the date ordered by id.
	ListByLaunchDate(ctx context.Context, date Date) ([]*Menu, error)
}
