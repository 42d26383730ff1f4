// Package storetest holds the behaviour every domain.Store must share. Backends
// call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
)

// Run exercises newStore against the repository contracts. newStore must return an
// empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) domain.Store) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Employees", func(t *testing.T) { testEmployees(t, newStore(t)) })
	t.Run("MenuItemUpsert", func(t *testing.T) { testMenuItemUpsert(t, newStore(t)) })
	t.Run("MenuItemsOrderedAndIdempotent", func(t *testing.T) { testAttachItems(t, newStore(t)) })
	t.Run("VotesUniquePerPair", func(t *testing.T) { testVotes(t, newStore(t)) })
	t.Run("Tally", func(t *testing.T) { testTally(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("ConcurrentVotes", func(t *testing.T) { testConcurrentVotes(t, newStore(t)) })
}

func ptr[T any](v T) *T { return &v }

func seedRestaurant(t *testing.T, s domain.Store, name string) *domain.Restaurant {
	t.Helper()
	r := &domain.Restaurant{Name: name}
	require.NoError(t, s.Restaurants().Create(context.Background(), r))
	return r
}

func seedEmployee(t *testing.T, s domain.Store, username string) *domain.Employee {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.Users().Create(ctx, u))
	e := &domain.Employee{UserID: u.ID, FirstName: "Ann", LastName: username}
	require.NoError(t, s.Employees().Create(ctx, e))
	return e
}

func seedMenu(t *testing.T, s domain.Store, restaurantID int64, day domain.Date, titles ...string) *domain.Menu {
	t.Helper()
	ctx := context.Background()
	m := &domain.Menu{RestaurantID: restaurantID, LaunchDate: day, Title: ptr("Lunch")}
	require.NoError(t, s.Menus().Create(ctx, m))
	ids := make([]int64, 0, len(titles))
	for _, title := range titles {
		it := &domain.MenuItem{RestaurantID: restaurantID, Title: title, Description: title + " desc"}
		require.NoError(t, s.MenuItems().Upsert(ctx, it))
		ids = append(ids, it.ID)
	}
	require.NoError(t, s.Menus().AttachItems(ctx, m.ID, ids))
	return m
}

func testUsers(t *testing.T, s domain.Store) {
	ctx := context.Background()
	u := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", IsAdmin: true}
	require.NoError(t, s.Users().Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.False(t, u.DateJoined.IsZero())

	got, err := s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "hash", got.PasswordHash)

	err = s.Users().Create(ctx, &domain.User{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = s.Users().GetByID(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testEmployees(t *testing.T, s domain.Store) {
	ctx := context.Background()
	e := seedEmployee(t, s, "bob")

	got, err := s.Employees().GetByUserID(ctx, e.UserID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Ann bob", got.DisplayName())

	err = s.Employees().Create(ctx, &domain.Employee{UserID: e.UserID, FirstName: "x", LastName: "y"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = s.Employees().GetByID(ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testMenuItemUpsert(t *testing.T, s domain.Store) {
	ctx := context.Background()
	r1 := seedRestaurant(t, s, "Bistro")
	r2 := seedRestaurant(t, s, "Bistro")

	first := &domain.MenuItem{RestaurantID: r1.ID, Title: "Pasta", Description: "A"}
	require.NoError(t, s.MenuItems().Upsert(ctx, first))

	again := &domain.MenuItem{RestaurantID: r1.ID, Title: "Pasta", Description: "B"}
	require.NoError(t, s.MenuItems().Upsert(ctx, again))
	assert.Equal(t, first.ID, again.ID, "same restaurant and title share one row")

	found, err := s.MenuItems().FindByTitle(ctx, r1.ID, "Pasta")
	require.NoError(t, err)
	assert.Equal(t, "B", found.Description)

	other := &domain.MenuItem{RestaurantID: r2.ID, Title: "Pasta", Description: "C"}
	require.NoError(t, s.MenuItems().Upsert(ctx, other))
	assert.NotEqual(t, first.ID, other.ID, "titles are scoped per restaurant")

	require.NoError(t, s.MenuItems().UpdateDescription(ctx, first.ID, "D"))
	found, err = s.MenuItems().FindByTitle(ctx, r1.ID, "Pasta")
	require.NoError(t, err)
	assert.Equal(t, "D", found.Description)

	_, err = s.MenuItems().FindByTitle(ctx, r1.ID, "Soup")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testAttachItems(t *testing.T, s domain.Store) {
	ctx := context.Background()
	r := seedRestaurant(t, s, "Deli")
	day := domain.NewDate(2025, 3, 14)
	m := seedMenu(t, s, r.ID, day, "Soup", "Bread", "Cake")

	items, err := s.Menus().GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, items.Items, 3)

	require.NoError(t, s.Menus().AttachItems(ctx, m.ID, []int64{items.Items[1].ID, items.Items[0].ID}))

	got, err := s.Menus().GetByID(ctx, m.ID)
	require.NoError(t, err)
	titles := []string{}
	for _, it := range got.Items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"Soup", "Bread", "Cake"}, titles)
	assert.Equal(t, "Lunch", got.DisplayName())
	assert.Nil(t, got.Notes)
	assert.True(t, got.LaunchDate.Equal(day))

	seedMenu(t, s, r.ID, day.AddDays(1), "Soup")
	list, err := s.Menus().ListByLaunchDate(ctx, day)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, m.ID, list[0].ID)
	assert.Len(t, list[0].Items, 3)

	empty, err := s.Menus().ListByLaunchDate(ctx, day.AddDays(-10))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testVotes(t *testing.T, s domain.Store) {
	ctx := context.Background()
	r := seedRestaurant(t, s, "Grill")
	m := seedMenu(t, s, r.ID, domain.NewDate(2025, 1, 2), "Steak")
	e := seedEmployee(t, s, "carol")

	_, err := s.Votes().FindByMenuAndEmployee(ctx, m.ID, e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	v := &domain.Vote{MenuID: m.ID, EmployeeID: e.ID, Like: false}
	require.NoError(t, s.Votes().Create(ctx, v))
	assert.NotZero(t, v.ID)

	err = s.Votes().Create(ctx, &domain.Vote{MenuID: m.ID, EmployeeID: e.ID, Like: true})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	got, err := s.Votes().FindByMenuAndEmployee(ctx, m.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.False(t, got.Like)
	assert.Equal(t, domain.ActionDisliked, got.Action())
}

func testTally(t *testing.T, s domain.Store) {
	ctx := context.Background()
	r := seedRestaurant(t, s, "Cafe")
	day := domain.NewDate(2025, 6, 1)
	busy := seedMenu(t, s, r.ID, day, "Tea")
	quiet := seedMenu(t, s, r.ID, day, "Coffee")
	other := seedMenu(t, s, r.ID, day.AddDays(1), "Juice")

	for i, like := range []bool{true, true, true, false, false} {
		e := seedEmployee(t, s, "voter"+string(rune('a'+i)))
		require.NoError(t, s.Votes().Create(ctx, &domain.Vote{MenuID: busy.ID, EmployeeID: e.ID, Like: like}))
		require.NoError(t, s.Votes().Create(ctx, &domain.Vote{MenuID: other.ID, EmployeeID: e.ID, Like: true}))
	}

	tallies, err := s.Votes().TallyForDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []domain.Tally{
		{MenuID: busy.ID, Likes: 3, Dislikes: 2, Result: 1},
		{MenuID: quiet.ID},
	}, tallies)

	none, err := s.Votes().TallyForDate(ctx, day.AddDays(30))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testRollback(t *testing.T, s domain.Store) {
	ctx := context.Background()
	r := seedRestaurant(t, s, "Diner")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx domain.Repositories) error {
		it := &domain.MenuItem{RestaurantID: r.ID, Title: "Pie", Description: "apple"}
		if err := tx.MenuItems().Upsert(ctx, it); err != nil {
			return err
		}
		m := &domain.Menu{RestaurantID: r.ID, LaunchDate: domain.NewDate(2025, 2, 2)}
		if err := tx.Menus().Create(ctx, m); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.MenuItems().FindByTitle(ctx, r.ID, "Pie")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	menus, err := s.Menus().ListByLaunchDate(ctx, domain.NewDate(2025, 2, 2))
	require.NoError(t, err)
	assert.Empty(t, menus)
}

func testConcurrentVotes(t *testing.T, s domain.Store) {
	ctx := context.Background()
	r := seedRestaurant(t, s, "Canteen")
	m := seedMenu(t, s, r.ID, domain.NewDate(2025, 9, 9), "Rice")
	e := seedEmployee(t, s, "dave")

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(like bool) {
			defer wg.Done()
			results <- s.Votes().Create(ctx, &domain.Vote{MenuID: m.ID, EmployeeID: e.ID, Like: like})
		}(i%2 == 0)
	}
	wg.Wait()
	close(results)

	ok, dup := 0, 0
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicate):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}
