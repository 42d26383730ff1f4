package domain

import "context"

// Displayable is implemented by every entity that has a human readable label.
type Displayable interface {
	DisplayName() string
}

// Repositories groups the per-entity data access used by the services.
type Repositories interface {
	Users() UserRepository
	Employees() EmployeeRepository
	Restaurants() RestaurantRepository
	Menus() MenuRepository
	MenuItems() MenuItemRepository
	Votes() VoteRepository
}

// Store is the entity store. WithinTx runs fn against repositories bound to one
// transaction, committing if fn returns nil and rolling back otherwise.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
	Ping(ctx context.Context) error
}
