package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/repository/memstore"
)

var testDay = domain.NewDate(2025, 5, 20)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedCalendar(day domain.Date) Calendar {
	noon := day.Time().Add(12 * time.Hour)
	return Calendar{Location: time.UTC, Now: func() time.Time { return noon }}
}

func ptr[T any](v T) *T { return &v }

func seedRestaurant(t *testing.T, store domain.Store, name string) *domain.Restaurant {
	t.Helper()
	r := &domain.Restaurant{Name: name}
	require.NoError(t, store.Restaurants().Create(context.Background(), r))
	return r
}

func seedEmployee(t *testing.T, store domain.Store, username string) (*domain.User, *domain.Employee) {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(ctx, u))
	e := &domain.Employee{UserID: u.ID, FirstName: "Test", LastName: username}
	require.NoError(t, store.Employees().Create(ctx, e))
	return u, e
}

type fixture struct {
	store *memstore.Store
	menus *MenuService
	votes *VoteService
}

func newFixture() *fixture {
	store := memstore.New()
	cal := fixedCalendar(testDay)
	return &fixture{
		store: store,
		menus: NewMenuService(store, cal, discardLogger()),
		votes: NewVoteService(store, cal, discardLogger()),
	}
}

func item(title, description string) MenuItemInput {
	return MenuItemInput{Title: ptr(title), Description: ptr(description)}
}

func (f *fixture) createMenu(t *testing.T, restaurantID int64, day domain.Date, items ...MenuItemInput) *domain.Menu {
	t.Helper()
	m, err := f.menus.CreateMenu(context.Background(), CreateMenuInput{
		Restaurant: ptr(restaurantID),
		Title:      ptr("Menu"),
		LaunchDate: ptr(day.String()),
		Items:      items,
	})
	require.NoError(t, err)
	return m
}
