package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/repository/memstore"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/validation"
)

func employeeInput(username string) CreateEmployeeInput {
	return CreateEmployeeInput{
		Username:  ptr(username),
		Password:  ptr("password"),
		Email:     ptr(username + "@mail.com"),
		FirstName: ptr("Jane"),
		LastName:  ptr("Doe"),
	}
}

func TestCreateEmployee(t *testing.T) {
	store := memstore.New()
	svc := NewEmployeeService(store, discardLogger())
	ctx := context.Background()

	emp, err := svc.CreateEmployee(ctx, employeeInput("jane"))
	require.NoError(t, err)
	assert.NotZero(t, emp.ID)

	user, err := store.Users().GetByID(ctx, emp.UserID)
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.False(t, user.IsAdmin)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "password"))

	got, err := svc.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.DisplayName())

	byUser, err := employeeForUser(ctx, store.Employees(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, byUser.ID)
}

func TestCreateEmployeeUsernameTaken(t *testing.T) {
	store := memstore.New()
	svc := NewEmployeeService(store, discardLogger())
	ctx := context.Background()

	_, err := svc.CreateEmployee(ctx, employeeInput("jane"))
	require.NoError(t, err)

	_, err = svc.CreateEmployee(ctx, employeeInput("jane"))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "The username 'jane' is already in use", conflict.Message)
}

func TestCreateEmployeeValidation(t *testing.T) {
	svc := NewEmployeeService(memstore.New(), discardLogger())
	in := employeeInput("jane")
	in.FirstName = nil
	in.Email = ptr("not-an-email")

	_, err := svc.CreateEmployee(context.Background(), in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldErrors{
		"first_name": []string{validation.MsgRequired},
		"email":      []string{validation.MsgInvalidEmail},
	}, verr.Fields)
}

func TestGetEmployeeNotFound(t *testing.T) {
	store := memstore.New()
	svc := NewEmployeeService(store, discardLogger())
	_, err := svc.GetEmployee(context.Background(), 5)
	assert.EqualError(t, err, "No Employee matches the given query.")

	_, err = employeeForUser(context.Background(), store.Employees(), 5)
	assert.Same(t, domain.ErrEmployeeNotFound, err)
}

func restaurantInput(name, username string) CreateRestaurantInput {
	return CreateRestaurantInput{
		Name:     ptr(name),
		Username: ptr(username),
		Password: ptr("password"),
		Email:    ptr(username + "@mail.com"),
	}
}

func TestCreateRestaurantAllowsDuplicateNames(t *testing.T) {
	svc := NewRestaurantService(memstore.New(), time.Minute, discardLogger())
	ctx := context.Background()

	first, err := svc.CreateRestaurant(ctx, restaurantInput("RESTaurant", "r1"))
	require.NoError(t, err)
	second, err := svc.CreateRestaurant(ctx, restaurantInput("RESTaurant", "r2"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	require.NotNil(t, second.UserID)

	_, err = svc.CreateRestaurant(ctx, restaurantInput("Other", "r1"))
	assert.EqualError(t, err, "The username 'r1' is already in use")
}

func TestGetRestaurantCached(t *testing.T) {
	svc := NewRestaurantService(memstore.New(), time.Minute, discardLogger())
	ctx := context.Background()

	_, err := svc.GetRestaurant(ctx, 1)
	assert.EqualError(t, err, "No Restaurant matches the given query.")
	assert.Equal(t, 0, svc.cache.Len(), "misses are not cached")

	r, err := svc.CreateRestaurant(ctx, restaurantInput("Deli", "deli"))
	require.NoError(t, err)

	got, err := svc.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deli", got.Name)
	assert.Equal(t, 1, svc.cache.Len())
}
