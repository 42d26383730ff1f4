// Package memstore is an in-process domain.Store. It backs DATABASE_TYPE=memory
// and the service and handler tests. Transactions take a global lock and work on
// a copy of the data that replaces the original on commit.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/elebur/VoteAPI/internal/domain"
)

type itemKey struct {
	restaurantID int64
	title        string
}

type voteKey struct {
	menuID, employeeID int64
}

type data struct {
	seq         int64
	users       map[int64]domain.User
	employees   map[int64]domain.Employee
	restaurants map[int64]domain.Restaurant
	menus       map[int64]domain.Menu // Items holds ids only, see menuItemIDs
	menuItemIDs map[int64][]int64
	items       map[int64]domain.MenuItem
	itemByTitle map[itemKey]int64
	votes       map[int64]domain.Vote
	voteByPair  map[voteKey]int64
}

func newData() *data {
	return &data{
		users:       map[int64]domain.User{},
		employees:   map[int64]domain.Employee{},
		restaurants: map[int64]domain.Restaurant{},
		menus:       map[int64]domain.Menu{},
		menuItemIDs: map[int64][]int64{},
		items:       map[int64]domain.MenuItem{},
		itemByTitle: map[itemKey]int64{},
		votes:       map[int64]domain.Vote{},
		voteByPair:  map[voteKey]int64{},
	}
}

func (d *data) clone() *data {
	c := &data{
		seq:         d.seq,
		users:       maps.Clone(d.users),
		employees:   maps.Clone(d.employees),
		restaurants: maps.Clone(d.restaurants),
		menus:       maps.Clone(d.menus),
		menuItemIDs: make(map[int64][]int64, len(d.menuItemIDs)),
		items:       maps.Clone(d.items),
		itemByTitle: maps.Clone(d.itemByTitle),
		votes:       maps.Clone(d.votes),
		voteByPair:  maps.Clone(d.voteByPair),
	}
	for k, v := range d.menuItemIDs {
		c.menuItemIDs[k] = slices.Clone(v)
	}
	return c
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newData(), now: time.Now}
}

// SetClock overrides the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(view{d: work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// locked runs fn on the live data under the store lock.
func (s *Store) locked(fn func(v view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(view{d: s.data, now: s.now})
}

func (s *Store) Users() domain.UserRepository             { return autoUsers{s} }
func (s *Store) Employees() domain.EmployeeRepository     { return autoEmployees{s} }
func (s *Store) Restaurants() domain.RestaurantRepository { return autoRestaurants{s} }
func (s *Store) Menus() domain.MenuRepository             { return autoMenus{s} }
func (s *Store) MenuItems() domain.MenuItemRepository     { return autoMenuItems{s} }
func (s *Store) Votes() domain.VoteRepository             { return autoVotes{s} }

// view implements every repository against one data snapshot. The caller holds the lock.
type view struct {
	d   *data
	now func() time.Time
}

func (v view) Users() domain.UserRepository             { return v }
func (v view) Employees() domain.EmployeeRepository     { return employeesView(v) }
func (v view) Restaurants() domain.RestaurantRepository { return restaurantsView(v) }
func (v view) Menus() domain.MenuRepository             { return menusView(v) }
func (v view) MenuItems() domain.MenuItemRepository     { return itemsView(v) }
func (v view) Votes() domain.VoteRepository             { return votesView(v) }

// users

func (v view) Create(_ context.Context, u *domain.User) error {
	for _, existing := range v.d.users {
		if existing.Username == u.Username {
			return fmt.Errorf("create user %q: %w", u.Username, domain.ErrDuplicate)
		}
	}
	u.ID = v.d.nextID()
	u.DateJoined = v.now().UTC()
	v.d.users[u.ID] = *u
	return nil
}

func (v view) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := v.d.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %d: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (v view) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range v.d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user %q: %w", username, domain.ErrNotFound)
}

// employees

type employeesView view

func (v employeesView) Create(_ context.Context, e *domain.Employee) error {
	if _, ok := v.d.users[e.UserID]; !ok {
		return fmt.Errorf("create employee: %w", domain.ErrReference)
	}
	for _, existing := range v.d.employees {
		if existing.UserID == e.UserID {
			return fmt.Errorf("create employee: %w", domain.ErrDuplicate)
		}
	}
	e.ID = v.d.nextID()
	e.DateJoined = v.now().UTC()
	v.d.employees[e.ID] = *e
	return nil
}

func (v employeesView) GetByID(_ context.Context, id int64) (*domain.Employee, error) {
	e, ok := v.d.employees[id]
	if !ok {
		return nil, fmt.Errorf("get employee %d: %w", id, domain.ErrNotFound)
	}
	return &e, nil
}

func (v employeesView) GetByUserID(_ context.Context, userID int64) (*domain.Employee, error) {
	for _, e := range v.d.employees {
		if e.UserID == userID {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("get employee for user %d: %w", userID, domain.ErrNotFound)
}

// restaurants

type restaurantsView view

func (v restaurantsView) Create(_ context.Context, r *domain.Restaurant) error {
	if r.UserID != nil {
		if _, ok := v.d.users[*r.UserID]; !ok {
			return fmt.Errorf("create restaurant: %w", domain.ErrReference)
		}
	}
	r.ID = v.d.nextID()
	r.DateJoined = v.now().UTC()
	v.d.restaurants[r.ID] = *r
	return nil
}

func (v restaurantsView) GetByID(_ context.Context, id int64) (*domain.Restaurant, error) {
	r, ok := v.d.restaurants[id]
	if !ok {
		return nil, fmt.Errorf("get restaurant %d: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

// menu items

type itemsView view

func (v itemsView) FindByTitle(_ context.Context, restaurantID int64, title string) (*domain.MenuItem, error) {
	id, ok := v.d.itemByTitle[itemKey{restaurantID, title}]
	if !ok {
		return nil, fmt.Errorf("find menu item %q: %w", title, domain.ErrNotFound)
	}
	it := v.d.items[id]
	return &it, nil
}

func (v itemsView) UpdateDescription(_ context.Context, id int64, description string) error {
	it, ok := v.d.items[id]
	if !ok {
		return fmt.Errorf("update menu item %d: %w", id, domain.ErrNotFound)
	}
	it.Description = description
	v.d.items[id] = it
	return nil
}

func (v itemsView) Upsert(_ context.Context, item *domain.MenuItem) error {
	if _, ok := v.d.restaurants[item.RestaurantID]; !ok {
		return fmt.Errorf("upsert menu item: %w", domain.ErrReference)
	}
	key := itemKey{item.RestaurantID, item.Title}
	if id, ok := v.d.itemByTitle[key]; ok {
		item.ID = id
	} else {
		item.ID = v.d.nextID()
		v.d.itemByTitle[key] = item.ID
	}
	v.d.items[item.ID] = *item
	return nil
}

// menus

type menusView view

func (v menusView) Create(_ context.Context, m *domain.Menu) error {
	if _, ok := v.d.restaurants[m.RestaurantID]; !ok {
		return fmt.Errorf("create menu: %w", domain.ErrReference)
	}
	now := v.now().UTC()
	m.ID = v.d.nextID()
	m.DateCreated = now
	m.LastModified = now
	stored := *m
	stored.Items = nil
	v.d.menus[m.ID] = stored
	return nil
}

func (v menusView) AttachItems(_ context.Context, menuID int64, itemIDs []int64) error {
	if _, ok := v.d.menus[menuID]; !ok {
		return fmt.Errorf("attach items: %w", domain.ErrReference)
	}
	attached := v.d.menuItemIDs[menuID]
	for _, id := range itemIDs {
		if _, ok := v.d.items[id]; !ok {
			return fmt.Errorf("attach item %d: %w", id, domain.ErrReference)
		}
		if !slices.Contains(attached, id) {
			attached = append(attached, id)
		}
	}
	v.d.menuItemIDs[menuID] = attached
	return nil
}

func (v menusView) GetByID(_ context.Context, id int64) (*domain.Menu, error) {
	m, ok := v.d.menus[id]
	if !ok {
		return nil, fmt.Errorf("get menu %d: %w", id, domain.ErrNotFound)
	}
	return v.hydrate(m), nil
}

func (v menusView) ListByLaunchDate(_ context.Context, date domain.Date) ([]*domain.Menu, error) {
	out := []*domain.Menu{}
	for _, m := range v.d.menus {
		if m.LaunchDate.Equal(date) {
			out = append(out, v.hydrate(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v menusView) hydrate(m domain.Menu) *domain.Menu {
	ids := v.d.menuItemIDs[m.ID]
	m.Items = make([]domain.MenuItem, 0, len(ids))
	for _, id := range ids {
		m.Items = append(m.Items, v.d.items[id])
	}
	return &m
}

// votes

type votesView view

func (v votesView) FindByMenuAndEmployee(_ context.Context, menuID, employeeID int64) (*domain.Vote, error) {
	id, ok := v.d.voteByPair[voteKey{menuID, employeeID}]
	if !ok {
		return nil, fmt.Errorf("find vote: %w", domain.ErrNotFound)
	}
	vote := v.d.votes[id]
	return &vote, nil
}

func (v votesView) Create(_ context.Context, vote *domain.Vote) error {
	if _, ok := v.d.menus[vote.MenuID]; !ok {
		return fmt.Errorf("create vote: %w", domain.ErrReference)
	}
	if _, ok := v.d.employees[vote.EmployeeID]; !ok {
		return fmt.Errorf("create vote: %w", domain.ErrReference)
	}
	key := voteKey{vote.MenuID, vote.EmployeeID}
	if _, ok := v.d.voteByPair[key]; ok {
		return fmt.Errorf("create vote: %w", domain.ErrDuplicate)
	}
	vote.ID = v.d.nextID()
	vote.VotedAt = v.now().UTC()
	v.d.votes[vote.ID] = *vote
	v.d.voteByPair[key] = vote.ID
	return nil
}

func (v votesView) TallyForDate(_ context.Context, date domain.Date) ([]domain.Tally, error) {
	byMenu := map[int64]*domain.Tally{}
	tallies := []domain.Tally{}
	for _, m := range v.d.menus {
		if m.LaunchDate.Equal(date) {
			byMenu[m.ID] = &domain.Tally{MenuID: m.ID}
		}
	}
	for _, vote := range v.d.votes {
		t, ok := byMenu[vote.MenuID]
		if !ok {
			continue
		}
		if vote.Like {
			t.Likes++
		} else {
			t.Dislikes++
		}
	}
	for _, t := range byMenu {
		t.Result = t.Likes - t.Dislikes
		tallies = append(tallies, *t)
	}
	sort.Slice(tallies, func(i, j int) bool { return tallies[i].MenuID < tallies[j].MenuID })
	return tallies, nil
}
