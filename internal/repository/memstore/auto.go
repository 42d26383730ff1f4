package memstore

import (
	"context"

	"github.com/elebur/VoteAPI/internal/domain"
)

// The auto* types run a single repository call under the store lock.

type autoUsers struct{ s *Store }

func (a autoUsers) Create(ctx context.Context, u *domain.User) error {
	return a.s.locked(func(v view) error { return v.Users().Create(ctx, u) })
}

func (a autoUsers) GetByID(ctx context.Context, id int64) (u *domain.User, err error) {
	err = a.s.locked(func(v view) error { u, err = v.Users().GetByID(ctx, id); return err })
	return u, err
}

func (a autoUsers) GetByUsername(ctx context.Context, username string) (u *domain.User, err error) {
	err = a.s.locked(func(v view) error { u, err = v.Users().GetByUsername(ctx, username); return err })
	return u, err
}

type autoEmployees struct{ s *Store }

func (a autoEmployees) Create(ctx context.Context, e *domain.Employee) error {
	return a.s.locked(func(v view) error { return v.Employees().Create(ctx, e) })
}

func (a autoEmployees) GetByID(ctx context.Context, id int64) (e *domain.Employee, err error) {
	err = a.s.locked(func(v view) error { e, err = v.Employees().GetByID(ctx, id); return err })
	return e, err
}

func (a autoEmployees) GetByUserID(ctx context.Context, userID int64) (e *domain.Employee, err error) {
	err = a.s.locked(func(v view) error { e, err = v.Employees().GetByUserID(ctx, userID); return err })
	return e, err
}

type autoRestaurants struct{ s *Store }

func (a autoRestaurants) Create(ctx context.Context, r *domain.Restaurant) error {
	return a.s.locked(func(v view) error { return v.Restaurants().Create(ctx, r) })
}

func (a autoRestaurants) GetByID(ctx context.Context, id int64) (r *domain.Restaurant, err error) {
	err = a.s.locked(func(v view) error { r, err = v.Restaurants().GetByID(ctx, id); return err })
	return r, err
}

type autoMenuItems struct{ s *Store }

func (a autoMenuItems) FindByTitle(ctx context.Context, restaurantID int64, title string) (it *domain.MenuItem, err error) {
	err = a.s.locked(func(v view) error { it, err = v.MenuItems().FindByTitle(ctx, restaurantID, title); return err })
	return it, err
}

func (a autoMenuItems) UpdateDescription(ctx context.Context, id int64, description string) error {
	return a.s.locked(func(v view) error { return v.MenuItems().UpdateDescription(ctx, id, description) })
}

func (a autoMenuItems) Upsert(ctx context.Context, item *domain.MenuItem) error {
	return a.s.locked(func(v view) error { return v.MenuItems().Upsert(ctx, item) })
}

type autoMenus struct{ s *Store }

func (a autoMenus) Create(ctx context.Context, m *domain.Menu) error {
	return a.s.locked(func(v view) error { return v.Menus().Create(ctx, m) })
}

func (a autoMenus) AttachItems(ctx context.Context, menuID int64, itemIDs []int64) error {
	return a.s.locked(func(v view) error { return v.Menus().AttachItems(ctx, menuID, itemIDs) })
}

func (a autoMenus) GetByID(ctx context.Context, id int64) (m *domain.Menu, err error) {
	err = a.s.locked(func(v view) error { m, err = v.Menus().GetByID(ctx, id); return err })
	return m, err
}

func (a autoMenus) ListByLaunchDate(ctx context.Context, date domain.Date) (ms []*domain.Menu, err error) {
	err = a.s.locked(func(v view) error { ms, err = v.Menus().ListByLaunchDate(ctx, date); return err })
	return ms, err
}

type autoVotes struct{ s *Store }

func (a autoVotes) FindByMenuAndEmployee(ctx context.Context, menuID, employeeID int64) (vote *domain.Vote, err error) {
	err = a.s.locked(func(v view) error { vote, err = v.Votes().FindByMenuAndEmployee(ctx, menuID, employeeID); return err })
	return vote, err
}

func (a autoVotes) Create(ctx context.Context, vote *domain.Vote) error {
	return a.s.locked(func(v view) error { return v.Votes().Create(ctx, vote) })
}

func (a autoVotes) TallyForDate(ctx context.Context, date domain.Date) (ts []domain.Tally, err error) {
	err = a.s.locked(func(v view) error { ts, err = v.Votes().TallyForDate(ctx, date); return err })
	return ts, err
}
